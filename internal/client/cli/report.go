package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/khairulanwar/transferdesk/internal/client/navigation"
	"github.com/khairulanwar/transferdesk/internal/client/reports"
)

// Report collects a credit-report draft and parks it locally. Rendering is
// done elsewhere; this command only keeps the half-filled form around, and
// logout wipes it with the other drafts.
func (a *App) Report(ctx context.Context) error {
	if !a.pass(ctx, destTransfers, navigation.PolicyRequireUser) {
		return nil
	}

	if parked, err := a.reports.Load(ctx); err == nil && parked != nil {
		fmt.Printf("Existing report draft for %s will be replaced.\n", parked.Name)
	}

	var draft reports.Draft
	var err error
	if draft.Name, err = getSimpleText(a.reader, "Enter subject name", os.Stdout); err != nil {
		return err
	}
	if draft.IdentityNo, err = getSimpleText(a.reader, "Enter identity number", os.Stdout); err != nil {
		return err
	}
	if draft.Score, err = getSimpleText(a.reader, "Enter score", os.Stdout); err != nil {
		return err
	}
	if draft.ReportDate, err = getSimpleText(a.reader, "Enter report date", os.Stdout); err != nil {
		return err
	}
	if draft.Remarks, err = GetMultiline(a.reader, "Enter remarks:", os.Stdout); err != nil {
		return err
	}

	if err := a.reports.Save(ctx, draft); err != nil {
		fmt.Println(err.Error())
		return err
	}
	fmt.Println("Report draft saved.")
	return nil
}
