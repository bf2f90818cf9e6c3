package analyses

import "time"

// Analysis represents a document analysis job.
type Analysis struct {
	ID            string            `json:"id"`
	DocumentID    string            `json:"documentId"`
	SessionID     string            `json:"sessionId"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	PromptVersion string            `json:"promptVersion"`
	Status        string            `json:"status"`
	Result        *AnalysisResult   `json:"result,omitempty"`
	ProcessMap    *ProcessMapLayout `json:"processMap,omitempty"`
	RawResponse   string            `json:"-"`
	FailedStage   string            `json:"failedStage,omitempty"`
	ErrorCode     string            `json:"errorCode,omitempty"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	Retryable     bool              `json:"retryable,omitempty"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
