package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Command is a named shell command.
type Command interface {
	Definition() Definition
	Execute(ctx context.Context, args []string, env *Env) types.Result
}

// Definition describes a command for dispatch and help output.
type Definition struct {
	Name    string
	Summary string
	Usage   string
	Flags   []FlagSpec
}

// UsageLine returns "Usage: <usage>", falling back to the bare name.
func (d Definition) UsageLine() string {
	if d.Usage == "" {
		return "Usage: " + d.Name
	}
	return "Usage: " + d.Usage
}

// Help renders the usage line, summary and flag table.
func (d Definition) Help() string {
	var b strings.Builder
	b.WriteString(d.UsageLine())
	if d.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Summary)
	}
	if len(d.Flags) > 0 {
		b.WriteString("\n\nOptions:")
		for _, f := range d.Flags {
			b.WriteString("\n  ")
			b.WriteString(f.label())
			if f.Help != "" {
				fmt.Fprintf(&b, "\t%s", f.Help)
			}
		}
	}
	return b.String()
}

// Func adapts a plain function into a Command.
type Func struct {
	Def Definition
	Run func(ctx context.Context, args []string, env *Env) types.Result
}

// Definition implements Command.
func (f Func) Definition() Definition { return f.Def }

// Execute implements Command.
func (f Func) Execute(ctx context.Context, args []string, env *Env) types.Result {
	return f.Run(ctx, args, env)
}
