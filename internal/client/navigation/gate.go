// Package navigation decides whether a destination may be shown given the
// current authentication view. It is the last line of defense around the
// session manager: a panic while consulting it is converted into a recovery
// decision instead of propagating.
package navigation

import (
	"context"
	"fmt"

	"github.com/khairulanwar/transferdesk/internal/client/session"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

// Policy states what kind of visitor a destination accepts.
type Policy int

const (
	// PolicyPublic destinations render for everyone.
	PolicyPublic Policy = iota
	// PolicyRequireUser destinations need a signed-in user.
	PolicyRequireUser
	// PolicyRequireAnon destinations (sign-in, register) are for signed-out
	// visitors only.
	PolicyRequireAnon
)

// Outcome is the gate's verdict for one evaluation.
type Outcome int

const (
	// OutcomeWait: the session view is still loading, hold the decision.
	OutcomeWait Outcome = iota
	// OutcomeAllow: render the destination.
	OutcomeAllow
	// OutcomeRedirect: send the visitor to Decision.Target instead.
	OutcomeRedirect
	// OutcomeRecover: consulting the session manager panicked. The caller
	// should offer a retry and a way to the sign-in entry point.
	OutcomeRecover
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWait:
		return "wait"
	case OutcomeAllow:
		return "allow"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRecover:
		return "recover"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the result of an Evaluate call. Target is set for redirects
// and, as the sign-in entry point, for recover outcomes.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Gate evaluates navigation policies against the session manager's view.
type Gate struct {
	session session.Source
	local   storage.Repository
	log     logging.Logger

	signInPath  string
	defaultPath string
}

// NewGate builds a gate. signInPath is where unauthenticated visitors are
// sent; defaultPath is where signed-in visitors land when a signed-out-only
// destination turns them away ("/" when empty).
func NewGate(source session.Source, local storage.Repository, log logging.Logger, signInPath, defaultPath string) *Gate {
	if defaultPath == "" {
		defaultPath = "/"
	}
	return &Gate{
		session:     source,
		local:       local,
		log:         log,
		signInPath:  signInPath,
		defaultPath: defaultPath,
	}
}

// Evaluate decides whether dest may render under the given policy. It never
// panics.
func (g *Gate) Evaluate(ctx context.Context, dest string, policy Policy) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error(ctx, "session view lookup panicked", "dest", dest, "panic", r)
			d = Decision{Outcome: OutcomeRecover, Target: g.signInPath}
		}
	}()

	view := g.session.View()

	if view.Loading {
		return Decision{Outcome: OutcomeWait}
	}

	switch policy {
	case PolicyRequireUser:
		if view.User == nil {
			g.rememberReturn(ctx, dest)
			return Decision{Outcome: OutcomeRedirect, Target: g.signInPath}
		}
	case PolicyRequireAnon:
		if view.User != nil {
			return Decision{Outcome: OutcomeRedirect, Target: g.defaultPath}
		}
	}

	return Decision{Outcome: OutcomeAllow}
}

// rememberReturn parks the attempted destination so the sign-in flow can
// come back to it. Losing it is acceptable, so a storage failure is only
// logged.
func (g *Gate) rememberReturn(ctx context.Context, dest string) {
	if dest == "" || dest == g.signInPath {
		return
	}
	if err := g.local.Set(ctx, storage.KeyReturnTo, []byte(dest)); err != nil {
		g.log.Warn(ctx, "failed to remember return destination", "dest", dest, "err", err)
	}
}

// ConsumeReturn pops the remembered destination, falling back to the default
// destination when none was parked or storage fails.
func (g *Gate) ConsumeReturn(ctx context.Context) string {
	raw, err := g.local.Get(ctx, storage.KeyReturnTo)
	if err != nil {
		g.log.Warn(ctx, "failed to read return destination", "err", err)
		return g.defaultPath
	}
	if len(raw) == 0 {
		return g.defaultPath
	}
	if err := g.local.Delete(ctx, storage.KeyReturnTo); err != nil {
		g.log.Warn(ctx, "failed to clear return destination", "err", err)
	}
	return string(raw)
}
