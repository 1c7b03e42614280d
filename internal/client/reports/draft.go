// Package reports keeps the half-filled credit-report form in local storage
// under its own key. Logout removes that key along with the transfer drafts.
package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

// Draft is the not-yet-rendered report form as typed by the user. All fields
// are free text; validation happens at render time, not here.
type Draft struct {
	Name       string `json:"name"`
	IdentityNo string `json:"identity_no"`
	Score      string `json:"score"`
	ReportDate string `json:"report_date"`
	Remarks    string `json:"remarks"`
}

// Store persists the report draft.
type Store struct {
	local storage.Repository
	log   logging.Logger
}

func NewStore(local storage.Repository, log logging.Logger) *Store {
	return &Store{local: local, log: log}
}

// Save stores the draft, replacing any previous one.
func (s *Store) Save(ctx context.Context, draft Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode report draft: %w", err)
	}
	if err := s.local.Set(ctx, storage.KeyReportDraft, raw); err != nil {
		return fmt.Errorf("failed to save report draft: %w", err)
	}
	return nil
}

// Load returns the saved draft, or nil when none exists. An unreadable draft
// is dropped.
func (s *Store) Load(ctx context.Context) (*Draft, error) {
	raw, err := s.local.Get(ctx, storage.KeyReportDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to load report draft: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var draft Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		s.log.Warn(ctx, "discarding unreadable report draft", "err", err)
		_ = s.local.Delete(ctx, storage.KeyReportDraft)
		return nil, nil
	}
	return &draft, nil
}

// Clear removes the saved draft.
func (s *Store) Clear(ctx context.Context) error {
	return s.local.Delete(ctx, storage.KeyReportDraft)
}
