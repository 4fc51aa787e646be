package segmenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nbtcare/voicescreen/internal/models"
)

// HTTPProvider talks to the NBT segmentation backend:
// POST /api/conversation for segmentation, POST /api/text for rephrasing.
type HTTPProvider struct {
	baseURL string
	http    *http.Client
}

func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPProvider{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (p *HTTPProvider) Segment(ctx context.Context, messages []models.CallMessage) (*models.SummaryRecord, error) {
	body, err := json.Marshal(map[string]any{"messages": messages})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/conversation", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to process conversation: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var record models.SummaryRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (p *HTTPProvider) Rephrase(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/text", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to rephrase text: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// The backend is loose about the field it answers on; first present
	// key wins.
	var out struct {
		Response  string `json:"response"`
		Text      string `json:"text"`
		Rephrased string `json:"rephrased"`
		Result    string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	for _, v := range []string{out.Response, out.Text, out.Rephrased, out.Result} {
		if v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("rephrase response contained no text")
}
