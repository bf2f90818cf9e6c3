package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, document_id, session_id, status, provider, model, prompt_version,
       result, process_map, raw_response, failed_stage, error_code, error_message, error_retryable,
       started_at, completed_at, created_at, updated_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, document_id, session_id, status, provider, model, prompt_version, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.DocumentID,
		analysis.SessionID,
		analysis.Status,
		analysis.Provider,
		analysis.Model,
		analysis.PromptVersion,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	return scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
}

// MarkProcessing transitions an analysis to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $1,
    started_at = $2,
    updated_at = now()
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, startedAt, analysisID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted stores the validated result, layout and raw reply.
func (r *PGRepo) MarkCompleted(ctx context.Context, analysisID string, result AnalysisResult, layout ProcessMapLayout, rawResponse string, completedAt time.Time) error {
	resultPayload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	layoutPayload, err := json.Marshal(layout)
	if err != nil {
		return err
	}

	const query = `
UPDATE analyses
SET status = $1,
    result = $2::jsonb,
    process_map = $3::jsonb,
    raw_response = $4,
    completed_at = $5,
    updated_at = now()
WHERE id = $6`
	res, err := r.DB.ExecContext(ctx, query, StatusCompleted, resultPayload, layoutPayload, rawResponse, completedAt, analysisID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a typed failure.
func (r *PGRepo) MarkFailed(ctx context.Context, analysisID string, failure Failure, rawResponse string, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $1,
    failed_stage = $2,
    error_code = $3,
    error_message = $4,
    error_retryable = $5,
    raw_response = COALESCE(NULLIF($6, ''), raw_response),
    completed_at = $7,
    updated_at = now()
WHERE id = $8`
	res, err := r.DB.ExecContext(ctx, query,
		StatusFailed,
		failure.Stage,
		failure.Code,
		failure.Message,
		failure.Retryable,
		rawResponse,
		completedAt,
		analysisID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySession lists analyses for a session ordered newest-first.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

type analysisScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row analysisScanner) (Analysis, error) {
	var a Analysis
	var result sql.NullString
	var processMap sql.NullString
	var rawResponse sql.NullString
	var failedStage sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var retryable sql.NullBool
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	err := row.Scan(
		&a.ID,
		&a.DocumentID,
		&a.SessionID,
		&a.Status,
		&a.Provider,
		&a.Model,
		&a.PromptVersion,
		&result,
		&processMap,
		&rawResponse,
		&failedStage,
		&errorCode,
		&errorMessage,
		&retryable,
		&startedAt,
		&completedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	if result.Valid {
		var parsed AnalysisResult
		if err := json.Unmarshal([]byte(result.String), &parsed); err == nil {
			a.Result = &parsed
		}
	}
	if processMap.Valid {
		var layout ProcessMapLayout
		if err := json.Unmarshal([]byte(processMap.String), &layout); err == nil {
			a.ProcessMap = &layout
		}
	}
	if rawResponse.Valid {
		a.RawResponse = rawResponse.String
	}
	if failedStage.Valid {
		a.FailedStage = failedStage.String
	}
	if errorCode.Valid {
		a.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = errorMessage.String
	}
	if retryable.Valid {
		a.Retryable = retryable.Bool
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
