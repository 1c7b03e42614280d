package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/navigation"
)

// List refreshes the transfer cache and prints it, newest first.
func (a *App) List(ctx context.Context) error {
	if !a.pass(ctx, destTransfers, navigation.PolicyRequireUser) {
		return nil
	}

	a.store.Load(ctx)
	records := a.store.Records()
	if len(records) == 0 {
		fmt.Println("No transfers recorded.")
		return nil
	}
	for _, rec := range records {
		printRecordLine(rec)
	}
	return nil
}

// Add collects a transfer draft interactively and persists it. A draft that
// fails validation is parked locally so "add" can resume it later; a
// successful insert clears the parked draft.
func (a *App) Add(ctx context.Context) error {
	if !a.pass(ctx, destTransfers, navigation.PolicyRequireUser) {
		return nil
	}

	draft, err := a.resumeOrPrompt(ctx)
	if err != nil {
		return err
	}

	created, err := a.store.Add(ctx, *draft)
	if err != nil {
		fmt.Println(err.Error())
		if saveErr := a.store.SaveDraft(ctx, *draft); saveErr == nil {
			fmt.Println("Draft saved, run 'add' to resume.")
		}
		return err
	}

	_ = a.store.ClearDraft(ctx)
	fmt.Printf("Recorded transfer %s\n", created.ID)
	return nil
}

// Show prompts for an id and prints the cached record.
func (a *App) Show(ctx context.Context) error {
	if !a.pass(ctx, destTransfers, navigation.PolicyRequireUser) {
		return nil
	}

	id, err := getSimpleText(a.reader, "Enter transfer id", os.Stdout)
	if err != nil {
		return err
	}
	rec := a.store.FindByID(id)
	if rec == nil {
		fmt.Println("No such transfer in the current list. Run 'list' to refresh.")
		return nil
	}
	printRecord(*rec)
	return nil
}

// Remove prompts for an id and deletes the record.
func (a *App) Remove(ctx context.Context) error {
	if !a.pass(ctx, destTransfers, navigation.PolicyRequireUser) {
		return nil
	}

	id, err := getSimpleText(a.reader, "Enter transfer id", os.Stdout)
	if err != nil {
		return err
	}
	a.store.Remove(ctx, id)
	return nil
}

func (a *App) resumeOrPrompt(ctx context.Context) (*models.TransferDraft, error) {
	if parked, err := a.store.LoadDraft(ctx); err == nil && parked != nil {
		answer, err := getSimpleText(a.reader, "A saved draft exists. Resume it? (y/n)", os.Stdout)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(answer, "y") {
			return parked, nil
		}
		_ = a.store.ClearDraft(ctx)
	}
	return a.promptDraft()
}

func (a *App) promptDraft() (*models.TransferDraft, error) {
	var draft models.TransferDraft
	prompts := []struct {
		label string
		dst   *string
	}{
		{"Enter bank", &draft.Bank},
		{"Enter payee name", &draft.PayeeName},
		{"Enter account number", &draft.Account},
		{"Enter amount", &draft.Amount},
		{"Enter status (Processing/Successful/Cancelled)", &draft.Status},
		{"Enter starting percentage (1-100, Processing only)", &draft.StartingPercentage},
		{"Enter transfer type", &draft.TransferType},
		{"Enter recipient reference", &draft.RecipientReference},
	}
	for _, p := range prompts {
		value, err := getSimpleText(a.reader, p.label, os.Stdout)
		if err != nil {
			return nil, err
		}
		*p.dst = value
	}
	draft.Currency = models.DefaultCurrency
	return &draft, nil
}

func printRecordLine(rec models.TransferRecord) {
	status := string(rec.Status)
	if rec.Status == models.StatusProcessing && rec.StartingPercentage != nil {
		status = fmt.Sprintf("%s %d%%", status, *rec.StartingPercentage)
	}
	fmt.Printf("%s  %s %s  %s -> %s  [%s]\n",
		rec.ID, rec.Currency, rec.Amount, rec.Bank, rec.PayeeName, status)
}

func printRecord(rec models.TransferRecord) {
	printRecordLine(rec)
	fmt.Printf("  account: %s\n", rec.Account)
	if rec.TransferType != nil {
		fmt.Printf("  type: %s\n", *rec.TransferType)
	}
	if rec.RecipientReference != nil {
		fmt.Printf("  reference: %s\n", *rec.RecipientReference)
	}
	if rec.TransactionID != nil {
		fmt.Printf("  transaction: %s\n", *rec.TransactionID)
	}
	fmt.Printf("  created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
}
