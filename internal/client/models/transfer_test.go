package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1.80", want: 180},
		{in: "1.8", want: 180},
		{in: "1000000.00", want: 100_000_000},
		{in: "250", want: 25_000},
		{in: "0.01", want: 1},
		{in: "10.123", wantErr: true},
		{in: "0", wantErr: true},
		{in: "0.00", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1,000", wantErr: true},
		{in: "5.", wantErr: true},
		{in: "", wantErr: true},
		// Amounts whose cent value would wrap int64 must not come back as
		// a small positive number.
		{in: "184467440737095521", wantErr: true},
		{in: "184467440737095521.99", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmountCents(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func validDraft() TransferDraft {
	return TransferDraft{
		Bank:      "Public Bank Berhad",
		PayeeName: "LOO HUI KIEN",
		Account:   "6331069024",
		Amount:    "1.80",
		Date:      "2025-03-14",
		Status:    "Successful",
	}
}

func TestNormalizeValidDraft(t *testing.T) {
	rec, err := validDraft().Normalize(MaxAmountCents)
	require.NoError(t, err)
	require.Equal(t, "Public Bank Berhad", rec.Bank)
	require.Equal(t, DefaultCurrency, rec.Currency)
	require.Equal(t, StatusSuccessful, rec.Status)
	require.Nil(t, rec.StartingPercentage)
	require.Nil(t, rec.Time)
	require.Nil(t, rec.RecipientReference)
}

func TestNormalizeAmountBoundaries(t *testing.T) {
	d := validDraft()

	d.Amount = "1000000.00"
	_, err := d.Normalize(MaxAmountCents)
	require.NoError(t, err)

	d.Amount = "1000000.01"
	_, err = d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrAmountTooLarge)

	d.Amount = "10.123"
	_, err = d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrInvalidAmount)

	// An amount whose cent value wraps int64 must hit the cap, not sneak
	// past it as a small positive number.
	d.Amount = "184467440737095521"
	_, err = d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestNormalizeMissingRequiredFields(t *testing.T) {
	for _, clear := range []func(*TransferDraft){
		func(d *TransferDraft) { d.Bank = "  " },
		func(d *TransferDraft) { d.PayeeName = "" },
		func(d *TransferDraft) { d.Account = "" },
		func(d *TransferDraft) { d.Amount = "" },
	} {
		d := validDraft()
		clear(&d)
		_, err := d.Normalize(MaxAmountCents)
		require.ErrorIs(t, err, ErrMissingField)
	}
}

func TestNormalizeAccountDigitsOnly(t *testing.T) {
	d := validDraft()
	d.Account = "633-106-9024"
	_, err := d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrInvalidAccount)
}

func TestNormalizeProcessingRequiresPercentage(t *testing.T) {
	d := validDraft()
	d.Status = "Processing"
	_, err := d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrInvalidPercentage)

	d.StartingPercentage = "64"
	rec, err := d.Normalize(MaxAmountCents)
	require.NoError(t, err)
	require.NotNil(t, rec.StartingPercentage)
	require.Equal(t, 64, *rec.StartingPercentage)
}

func TestNormalizePercentageRange(t *testing.T) {
	for _, raw := range []string{"0", "101", "-3", "abc"} {
		d := validDraft()
		d.StartingPercentage = raw
		_, err := d.Normalize(MaxAmountCents)
		require.ErrorIs(t, err, ErrInvalidPercentage, raw)
	}
}

func TestNormalizeBlankOptionalsStoredAbsent(t *testing.T) {
	d := validDraft()
	d.RecipientReference = "   "
	d.TransferMode = ""
	d.ProcessingReason = "\t"
	d.RecipientBank = " Maybank Berhad "

	rec, err := d.Normalize(MaxAmountCents)
	require.NoError(t, err)
	require.Nil(t, rec.RecipientReference)
	require.Nil(t, rec.TransferMode)
	require.Nil(t, rec.ProcessingReason)
	require.NotNil(t, rec.RecipientBank)
	require.Equal(t, "Maybank Berhad", *rec.RecipientBank)
}

func TestNormalizeInvalidStatus(t *testing.T) {
	d := validDraft()
	d.Status = "Pending"
	_, err := d.Normalize(MaxAmountCents)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
