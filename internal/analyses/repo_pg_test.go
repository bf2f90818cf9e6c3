package analyses

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	analysis := Analysis{
		ID:            "analysis-1",
		DocumentID:    "doc-1",
		SessionID:     "session-1",
		Status:        StatusQueued,
		Provider:      "gemini",
		Model:         "gemini-pro",
		PromptVersion: "v1",
		CreatedAt:     time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			analysis.ID,
			analysis.DocumentID,
			analysis.SessionID,
			analysis.Status,
			analysis.Provider,
			analysis.Model,
			analysis.PromptVersion,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkFailedRecordsStageAndCode(t *testing.T) {
	repo, mock := newMockRepo(t)
	failure := Failure{
		Stage:     StageParse,
		Code:      ErrorCodeSchemaViolation,
		Message:   "missing key process_map",
		Retryable: false,
	}
	completedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE analyses").
		WithArgs(
			StatusFailed,
			failure.Stage,
			failure.Code,
			failure.Message,
			failure.Retryable,
			"raw reply",
			completedAt,
			"analysis-1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed(context.Background(), "analysis-1", failure, "raw reply", completedAt); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkCompletedUnknownID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCompleted(context.Background(), "missing", AnalysisResult{}, ProcessMapLayout{}, "", time.Now().UTC())
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
