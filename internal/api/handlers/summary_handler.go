package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nbtcare/voicescreen/internal/services"
	"github.com/nbtcare/voicescreen/internal/utils"
)

type SummaryHandler struct {
	summaries   services.SummaryService
	assessments services.AssessmentService
}

func NewSummaryHandler(summaries services.SummaryService, assessments services.AssessmentService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, assessments: assessments}
}

// GetByCall runs the retrieval pipeline on demand. The response is always
// 200 with a discriminated body; the UI branches on "ok".
func (h *SummaryHandler) GetByCall(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	callID := c.Param("call_id")
	if callID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SummaryHandler.GetByCall", "missing call_id", nil))
		return
	}

	result := h.summaries.GetCallSummary(c.Request.Context(), callID)
	c.JSON(http.StatusOK, result)
}

type RephraseRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *SummaryHandler) Rephrase(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req RephraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SummaryHandler.Rephrase", "invalid request body", err))
		return
	}

	out, err := h.summaries.Rephrase(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": out})
}

func (h *SummaryHandler) GetAssessment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	row, err := h.assessments.GetByCallID(c.Request.Context(), userID, c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *SummaryHandler) ListMine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.assessments.ListMine(c.Request.Context(), userID, queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": rows})
}

// ListAll is the clinician view across every account.
func (h *SummaryHandler) ListAll(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	rows, err := h.assessments.ListAll(c.Request.Context(), queryLimit(c, 200))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessments": rows})
}

func queryLimit(c *gin.Context, def int) int {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}
