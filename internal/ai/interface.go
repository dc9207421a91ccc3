package ai

import (
	"context"

	"shuttle/internal/modules/analytics"
)

// Summarizer turns an operations snapshot into a short digest for administrators.
type Summarizer interface {
	Digest(ctx context.Context, snap *analytics.Snapshot) (*Digest, error)
}
