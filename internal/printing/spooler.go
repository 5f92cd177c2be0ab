package printing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Spooler hands a rendered ticket to a named print queue. The physical
// printer protocol is the spooler's problem, not ours.
type Spooler interface {
	Print(ctx context.Context, printer, ticket string) error
}

// LP submits jobs through the CUPS lp command.
type LP struct{}

func (LP) Print(ctx context.Context, printer, ticket string) error {
	cmd := exec.CommandContext(ctx, "lp", "-d", printer, "-")
	cmd.Stdin = strings.NewReader(ticket)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("lp -d %s: %v: %s", printer, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Func adapts a function to the Spooler interface; tests use it to
// fake spooler failures.
type Func func(ctx context.Context, printer, ticket string) error

func (f Func) Print(ctx context.Context, printer, ticket string) error {
	return f(ctx, printer, ticket)
}
