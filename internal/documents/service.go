package documents

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"docinsight-backend/internal/shared/storage/object"
)

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
}

// Upload saves the file to object storage and records the document.
func (s *Service) Upload(ctx context.Context, sessionID, fileName string, r io.Reader) (Document, error) {
	if fileName == "" {
		return Document{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, sessionID, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		FileName:        fileName,
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.StorageProvider,
		StorageKey:      storageKey,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Get returns a document by ID within a session.
func (s *Service) Get(ctx context.Context, sessionID, documentID string) (Document, error) {
	if sessionID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, sessionID, documentID)
}

// Current returns the most recently uploaded document for a session.
func (s *Service) Current(ctx context.Context, sessionID string) (Document, error) {
	if sessionID == "" {
		return Document{}, errors.New("session id required")
	}
	return s.Repo.GetCurrentBySession(ctx, sessionID)
}

// List returns documents for a session, newest first.
func (s *Service) List(ctx context.Context, sessionID string, limit, offset int) ([]Document, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListBySession(ctx, sessionID, limit, offset)
}
