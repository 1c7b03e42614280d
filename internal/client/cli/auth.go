package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/khairulanwar/transferdesk/internal/client/navigation"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// errThrottled is what the front-door limiter produces; the manager itself
// never consults the limiter.
var errThrottled = errors.New("too many attempts, please wait a moment")

// Register prompts for email, display name and password and attempts to
// create an account. A created identity without an active session means the
// provider wants an email confirmation first; that is reported as success
// with an advisory message.
func (a *App) Register(ctx context.Context) error {
	if !a.pass(ctx, destRegister, navigation.PolicyRequireAnon) {
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if !a.limiter.Allow(email) {
		fmt.Println(errThrottled.Error())
		return errThrottled
	}

	confirmationRequired, err := a.manager.Register(ctx, email, password, name)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	if confirmationRequired {
		fmt.Println("Almost there! Check your inbox and confirm your email to finish signing up.")
	} else {
		fmt.Println("Success!")
	}
	return nil
}

// Login prompts for credentials and authenticates through the session
// manager. The authenticated view itself arrives via the provider's
// session-change stream, so a nil error here only means the provider
// accepted the credentials.
func (a *App) Login(ctx context.Context) error {
	if !a.pass(ctx, destSignIn, navigation.PolicyRequireAnon) {
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if !a.limiter.Allow(email) {
		fmt.Println(errThrottled.Error())
		return errThrottled
	}

	if err := a.manager.Login(ctx, email, password); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Signed in.")
	if dest := a.gate.ConsumeReturn(ctx); dest != destTransfers {
		fmt.Printf("Returning to %s\n", dest)
	}
	return nil
}

// Logout signs out. Local state clears immediately; a slow or failing
// provider call changes nothing the user can see.
func (a *App) Logout(ctx context.Context) error {
	a.manager.Logout(ctx)
	fmt.Println("Signed out.")
	return nil
}

// Whoami prints the signed-in user, if any.
func (a *App) Whoami(ctx context.Context) error {
	v := a.manager.View()
	switch {
	case v.Loading:
		fmt.Println("Still loading, try again shortly.")
	case v.User == nil:
		fmt.Println("Not signed in.")
	default:
		fmt.Printf("%s <%s>\n", v.User.DisplayName, v.User.Email)
	}
	return nil
}

// pass runs the navigation gate for dest under policy and prints the verdict
// for anything but Allow. Guarded commands call this before doing work.
func (a *App) pass(ctx context.Context, dest string, policy navigation.Policy) bool {
	d := a.gate.Evaluate(ctx, dest, policy)
	switch d.Outcome {
	case navigation.OutcomeAllow:
		return true
	case navigation.OutcomeWait:
		fmt.Println("Still signing in, try again shortly.")
	case navigation.OutcomeRedirect:
		if d.Target == destSignIn {
			fmt.Println("Please sign in first (login).")
		} else {
			fmt.Println("Already signed in.")
		}
	case navigation.OutcomeRecover:
		fmt.Println("Something went wrong. Retry, or sign in again (login).")
	}
	return false
}
