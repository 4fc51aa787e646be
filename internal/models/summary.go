package models

// QuestionMapping is one question/answer pair produced by the segmentation
// backend. Order follows the sequence the questions were actually asked in,
// not the script order.
type QuestionMapping struct {
	QuestionFromScript  string `json:"questionFromScript"`
	ActualQuestionAsked string `json:"actualQuestionAsked"`
	UserResponse        string `json:"userResponse"`
	Language            string `json:"language"`
}

// ChatSegregation splits the raw conversation into assistant and parent turns.
type ChatSegregation struct {
	Bot  []string `json:"bot"`
	User []string `json:"user"`
}

type SummaryRecord struct {
	ChatSegregation  ChatSegregation   `json:"chatSegregation"`
	QuestionsMapping []QuestionMapping `json:"questionsMapping"`
}

// CallMessage is one raw transcript turn as returned by the voice platform.
type CallMessage struct {
	Role             string  `json:"role"`
	Message          string  `json:"message"`
	Time             float64 `json:"time,omitempty"`
	SecondsFromStart float64 `json:"secondsFromStart,omitempty"`
}

// CallData is the raw call payload from GET /call/{id}.
type CallData struct {
	ID       string        `json:"id"`
	Messages []CallMessage `json:"messages"`
}

// SummaryResult is the discriminated outcome of the retrieval pipeline.
// Callers branch on OK; they never inspect error types.
type SummaryResult struct {
	OK       bool           `json:"ok"`
	Summary  *SummaryRecord `json:"summary,omitempty"`
	CallData *CallData      `json:"callData,omitempty"`
	Error    string         `json:"error,omitempty"`
}
