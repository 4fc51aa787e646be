package segmenter

import (
	"context"

	"github.com/nbtcare/voicescreen/internal/models"
)

type Provider interface {
	// Segment maps raw call turns onto the screening script's
	// question/answer structure.
	Segment(ctx context.Context, messages []models.CallMessage) (*models.SummaryRecord, error)
	// Rephrase rewrites a single answer for the summary editor.
	Rephrase(ctx context.Context, text string) (string, error)
}
