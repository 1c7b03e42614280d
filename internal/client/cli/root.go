package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

func (a *App) getStatus() string {
	v := a.manager.View()
	switch {
	case v.Loading:
		return "(loading)"
	case v.User != nil:
		return fmt.Sprintf("(%s)", v.User.DisplayName)
	default:
		return ""
	}
}

// Root runs the interactive loop until EOF or an exit command.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to transferdesk CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
