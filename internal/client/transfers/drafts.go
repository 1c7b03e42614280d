package transfers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
)

// Draft persistence mirrors the original product's behavior of parking a
// half-filled form in local storage. The logout path removes these keys, so
// drafts never outlive the user who typed them.

// SaveDraft stores a new-transfer draft.
func (s *Store) SaveDraft(ctx context.Context, draft models.TransferDraft) error {
	return s.saveDraft(ctx, storage.KeyTransferDraft, draft)
}

// LoadDraft returns the saved new-transfer draft, or nil when none exists.
func (s *Store) LoadDraft(ctx context.Context) (*models.TransferDraft, error) {
	return s.loadDraft(ctx, storage.KeyTransferDraft)
}

// ClearDraft removes the saved new-transfer draft.
func (s *Store) ClearDraft(ctx context.Context) error {
	return s.local.Delete(ctx, storage.KeyTransferDraft)
}

// SaveEditDraft stores the draft of an edit-in-progress.
func (s *Store) SaveEditDraft(ctx context.Context, draft models.TransferDraft) error {
	return s.saveDraft(ctx, storage.KeyEditTransferDraft, draft)
}

// LoadEditDraft returns the saved edit draft, or nil when none exists.
func (s *Store) LoadEditDraft(ctx context.Context) (*models.TransferDraft, error) {
	return s.loadDraft(ctx, storage.KeyEditTransferDraft)
}

// ClearEditDraft removes the saved edit draft.
func (s *Store) ClearEditDraft(ctx context.Context) error {
	return s.local.Delete(ctx, storage.KeyEditTransferDraft)
}

func (s *Store) saveDraft(ctx context.Context, key string, draft models.TransferDraft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.local.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *Store) loadDraft(ctx context.Context, key string) (*models.TransferDraft, error) {
	raw, err := s.local.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var draft models.TransferDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		// An unreadable draft is junk from an older build; drop it.
		s.log.Warn(ctx, "discarding unreadable draft", "key", key, "err", err)
		_ = s.local.Delete(ctx, key)
		return nil, nil
	}
	return &draft, nil
}
