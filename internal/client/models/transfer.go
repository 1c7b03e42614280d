package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TransferStatus enumerates the lifecycle states a fabricated transfer can be
// rendered in.
type TransferStatus string

const (
	StatusProcessing TransferStatus = "Processing"
	StatusSuccessful TransferStatus = "Successful"
	StatusCancelled  TransferStatus = "Cancelled"
)

func (s TransferStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusSuccessful, StatusCancelled:
		return true
	}
	return false
}

// DefaultCurrency is applied when a draft leaves the currency blank.
const DefaultCurrency = "RM"

// MaxAmountCents caps a single transfer at RM 1,000,000.00.
const MaxAmountCents int64 = 100_000_000

// TransferRecord is one fabricated bank-transfer event as stored by the
// provider. Optional fields use pointers so "not provided" and "explicitly
// blank" stay distinguishable; blank-after-trim strings are never stored.
type TransferRecord struct {
	ID                 string         `json:"id"`
	OwnerID            string         `json:"owner_id"`
	Bank               string         `json:"bank"`
	PayeeName          string         `json:"payee_name"`
	Date               string         `json:"date"`
	Time               *string        `json:"time,omitempty"`
	TransferType       *string        `json:"transfer_type,omitempty"`
	Account            string         `json:"account"`
	Amount             string         `json:"amount"`
	Currency           string         `json:"currency"`
	Status             TransferStatus `json:"status"`
	StartingPercentage *int           `json:"starting_percentage,omitempty"`
	TransactionID      *string        `json:"transaction_id,omitempty"`
	RecipientReference *string        `json:"recipient_reference,omitempty"`
	PayFromAccount     *string        `json:"pay_from_account,omitempty"`
	TransferMode       *string        `json:"transfer_mode,omitempty"`
	EffectiveDate      *string        `json:"effective_date,omitempty"`
	RecipientBank      *string        `json:"recipient_bank,omitempty"`
	ProcessingReason   *string        `json:"processing_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// TransferDraft is a not-yet-persisted transfer description supplied by the
// UI. All fields arrive as raw strings; Normalize turns them into the stored
// representation.
type TransferDraft struct {
	Bank               string `json:"bank"`
	PayeeName          string `json:"payee_name"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	TransferType       string `json:"transfer_type"`
	Account            string `json:"account"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Status             string `json:"status"`
	StartingPercentage string `json:"starting_percentage"`
	TransactionID      string `json:"transaction_id"`
	RecipientReference string `json:"recipient_reference"`
	PayFromAccount     string `json:"pay_from_account"`
	TransferMode       string `json:"transfer_mode"`
	EffectiveDate      string `json:"effective_date"`
	RecipientBank      string `json:"recipient_bank"`
	ProcessingReason   string `json:"processing_reason"`
}

var (
	ErrMissingField      = errors.New("required field missing")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum")
	ErrInvalidAccount    = errors.New("account must contain digits only")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPercentage = errors.New("starting percentage must be between 1 and 100")
)

// ParseAmountCents parses a decimal amount string into cents. It rejects
// non-numeric input, non-positive values and more than two fractional digits.
func ParseAmountCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !digitsOnly(whole) {
		return 0, ErrInvalidAmount
	}
	cents, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Scaling to cents must not wrap around int64.
	if cents > (math.MaxInt64-99)/100 {
		return 0, ErrAmountTooLarge
	}
	cents *= 100

	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 || !digitsOnly(frac) {
			return 0, ErrInvalidAmount
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		if len(frac) == 1 {
			f *= 10
		}
		cents += f
	}

	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// optional trims s and returns nil when nothing remains, so blank input is
// stored as absent rather than an empty string.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Normalize validates the draft and produces the record to insert (without
// id, owner or server timestamp, which the provider assigns). maxCents is
// the configured per-transfer cap.
func (d TransferDraft) Normalize(maxCents int64) (*TransferRecord, error) {
	bank := strings.TrimSpace(d.Bank)
	payee := strings.TrimSpace(d.PayeeName)
	account := strings.TrimSpace(d.Account)
	amount := strings.TrimSpace(d.Amount)

	if bank == "" || payee == "" || account == "" || amount == "" {
		return nil, ErrMissingField
	}
	if !digitsOnly(account) {
		return nil, ErrInvalidAccount
	}

	cents, err := ParseAmountCents(amount)
	if err != nil {
		return nil, err
	}
	if cents > maxCents {
		return nil, ErrAmountTooLarge
	}

	status := TransferStatus(strings.TrimSpace(d.Status))
	if status == "" {
		status = StatusSuccessful
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}

	var pct *int
	if raw := strings.TrimSpace(d.StartingPercentage); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return nil, ErrInvalidPercentage
		}
		pct = &n
	}
	if status == StatusProcessing && pct == nil {
		return nil, fmt.Errorf("%w: required while processing", ErrInvalidPercentage)
	}

	currency := strings.TrimSpace(d.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	return &TransferRecord{
		Bank:               bank,
		PayeeName:          payee,
		Date:               strings.TrimSpace(d.Date),
		Time:               optional(d.Time),
		TransferType:       optional(d.TransferType),
		Account:            account,
		Amount:             amount,
		Currency:           currency,
		Status:             status,
		StartingPercentage: pct,
		TransactionID:      optional(d.TransactionID),
		RecipientReference: optional(d.RecipientReference),
		PayFromAccount:     optional(d.PayFromAccount),
		TransferMode:       optional(d.TransferMode),
		EffectiveDate:      optional(d.EffectiveDate),
		RecipientBank:      optional(d.RecipientBank),
		ProcessingReason:   optional(d.ProcessingReason),
	}, nil
}
