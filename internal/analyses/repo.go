package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, analysisID string, result AnalysisResult, layout ProcessMapLayout, rawResponse string, completedAt time.Time) error
	MarkFailed(ctx context.Context, analysisID string, failure Failure, rawResponse string, completedAt time.Time) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Analysis, error)
}

// Failure captures the typed outcome of a failed pipeline run.
type Failure struct {
	Stage     string
	Code      string
	Message   string
	Retryable bool
}
