package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/session"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/storage/object"
	"docinsight-backend/internal/shared/telemetry"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// CurrentResult is the per-session "current" analysis outcome kept for the
// presentation layer.
type CurrentResult struct {
	AnalysisID  string           `json:"analysisId"`
	DocumentID  string           `json:"documentId"`
	Result      AnalysisResult   `json:"result"`
	ProcessMap  ProcessMapLayout `json:"processMapLayout"`
	CompletedAt time.Time        `json:"completedAt"`
}

// Service sequences the analysis pipeline: extract, prompt, inference,
// parse, project. Each stage short-circuits the run on failure; only this
// type knows the stage order.
type Service struct {
	Repo     Repo
	DocRepo  documents.DocumentsRepo
	Store    object.ObjectStore
	LLM      llm.Client
	Current  *session.Holder[CurrentResult]
	Provider string
	Model    string

	// Retry overrides the inference retry policy; zero value means default.
	Retry llm.RetryPolicy
	// SleepFn overrides retry pauses in tests.
	SleepFn func(ctx context.Context, d time.Duration) error
}

// Create enqueues a new analysis and kicks off asynchronous completion.
func (s *Service) Create(ctx context.Context, documentID, sessionID string) (Analysis, error) {
	if documentID == "" || sessionID == "" {
		return Analysis{}, errors.New("documentID and sessionID are required")
	}

	analysis := Analysis{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		SessionID:     sessionID,
		Provider:      normalizeProvider(s.Provider),
		Model:         s.Model,
		PromptVersion: llm.PromptVersion,
		Status:        StatusQueued,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	go s.completeAsync(backgroundWithRequestID(ctx), analysis.ID)

	return analysis, nil
}

// Get returns an analysis by ID.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// List returns analyses for a session ordered newest-first.
func (s *Service) List(ctx context.Context, sessionID string, limit, offset int) ([]Analysis, error) {
	if sessionID == "" {
		return nil, errors.New("sessionID is required")
	}
	return s.Repo.ListBySession(ctx, sessionID, limit, offset)
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "gemini"
	}
	return provider
}

// stageError pins a pipeline failure to the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failStage(stage string, err error) *stageError {
	return &stageError{stage: stage, err: err}
}

func (s *Service) completeAsync(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(ctx, analysisID, "", "", failStage(StageStore, fmt.Errorf("panic: %v", r)), "", nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, analysisID, startedAt); err != nil {
		s.failAnalysis(ctx, analysisID, "", "", failStage(StageStore, fmt.Errorf("set processing failed: %w", err)), "", &startedAt)
		return
	}

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, "", "", failStage(StageStore, fmt.Errorf("analysis lookup: %w", err)), "", &startedAt)
		return
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        analysis.SessionID,
		"document_id":       analysis.DocumentID,
		"analysis_id":       analysis.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	result, layout, raw, runErr := s.runPipeline(ctx, analysis)
	if runErr != nil {
		s.failAnalysis(ctx, analysisID, analysis.SessionID, analysis.DocumentID, runErr, raw, &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.MarkCompleted(ctx, analysisID, result, layout, raw, completedAt); err != nil {
		s.failAnalysis(ctx, analysisID, analysis.SessionID, analysis.DocumentID, failStage(StageStore, fmt.Errorf("set analysis result failed: %w", err)), raw, &startedAt)
		return
	}
	if s.Current != nil {
		s.Current.Set(analysis.SessionID, CurrentResult{
			AnalysisID:  analysis.ID,
			DocumentID:  analysis.DocumentID,
			Result:      result,
			ProcessMap:  layout,
			CompletedAt: completedAt,
		})
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        analysis.SessionID,
		"document_id":       analysis.DocumentID,
		"analysis_id":       analysis.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

// runPipeline executes the staged analysis. On failure the returned error is
// a *stageError and the raw reply (when inference produced one) rides along
// for debugging.
func (s *Service) runPipeline(ctx context.Context, analysis Analysis) (AnalysisResult, ProcessMapLayout, string, error) {
	var zeroResult AnalysisResult
	var zeroLayout ProcessMapLayout

	if s.DocRepo == nil || s.Store == nil {
		return zeroResult, zeroLayout, "", failStage(StageStore, errors.New("missing document store dependencies"))
	}
	if s.LLM == nil {
		return zeroResult, zeroLayout, "", failStage(StageInference, llm.ErrNotConfigured)
	}

	doc, err := s.DocRepo.GetByID(ctx, analysis.SessionID, analysis.DocumentID)
	if err != nil {
		return zeroResult, zeroLayout, "", failStage(StageStore, fmt.Errorf("document lookup id=%s: %w", analysis.DocumentID, err))
	}

	text, err := s.extractedText(ctx, doc)
	if err != nil {
		return zeroResult, zeroLayout, "", failStage(StageExtract, err)
	}

	prompt := llm.BuildAnalysisPrompt(text)
	if strings.TrimSpace(prompt) == "" {
		return zeroResult, zeroLayout, "", failStage(StagePrompt, errors.New("empty prompt"))
	}

	client := llm.NewRetrying(s.LLM, s.Retry, requestIDFromContext(ctx))
	if s.SleepFn != nil {
		client.Sleep = s.SleepFn
	}
	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		return zeroResult, zeroLayout, "", failStage(StageInference, err)
	}

	result, err := ParseAnalysisResult(raw)
	if err != nil {
		return zeroResult, zeroLayout, raw, failStage(StageParse, err)
	}

	return result, BuildProcessMapLayout(result.ProcessMap), raw, nil
}

// extractedText returns the document's text, extracting and persisting the
// side file on first use.
func (s *Service) extractedText(ctx context.Context, doc documents.Document) (string, error) {
	if doc.ExtractedTextKey != "" {
		return loadText(ctx, s.Store, doc.ExtractedTextKey)
	}

	text, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		return "", err
	}
	extractedKey := doc.StorageKey + ".extracted.txt"
	if err := s.DocRepo.UpdateExtraction(ctx, doc.SessionID, doc.ID, extractedKey, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("update extraction document=%s: %w", doc.ID, err)
	}
	return text, nil
}

func (s *Service) failAnalysis(ctx context.Context, analysisID, sessionID, documentID string, err error, raw string, startedAt *time.Time) {
	failure := classifyFailure(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.Background(), analysisID, failure, raw, completedAt); updateErr != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"analysis_id": analysisID,
			"error":       updateErr.Error(),
			"cause":       sanitizeError(err),
		})
	}
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"session_id":        sessionID,
		"document_id":       documentID,
		"analysis_id":       analysisID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"failed_stage":      failure.Stage,
		"error_code":        failure.Code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

// classifyFailure maps a pipeline error to the typed failure stored on the
// analysis. Empty documents and schema violations are terminal; inference
// and storage problems are worth retrying with a new request.
func classifyFailure(err error) Failure {
	var stage string
	var se *stageError
	if errors.As(err, &se) {
		stage = se.stage
	}

	failure := Failure{
		Stage:     stage,
		Message:   sanitizeError(err),
		Code:      ErrorCodeInternal,
		Retryable: false,
	}

	switch {
	case errors.Is(err, extract.ErrEmptyDocument):
		failure.Code = ErrorCodeEmptyDocument
	case errors.Is(err, ErrSchemaViolation):
		failure.Code = ErrorCodeSchemaViolation
	case stage == StageInference:
		failure.Code = ErrorCodeInference
		failure.Retryable = true
	case stage == StageParse:
		failure.Code = ErrorCodeSchemaViolation
	case stage == StageStore:
		failure.Code = ErrorCodeStorage
		failure.Retryable = true
	case stage == StageExtract:
		failure.Code = ErrorCodeStorage
		failure.Retryable = true
	}
	return failure
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
