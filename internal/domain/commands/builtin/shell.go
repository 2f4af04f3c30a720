package builtin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// maxDelay bounds a single delay so a typo cannot park a session for days.
const maxDelay = 10 * time.Minute

// Delay pauses for a number of milliseconds. Other work may use the tree
// while it waits.
func Delay() commands.Command {
	def := commands.Definition{
		Name:    "delay",
		Summary: "Pause for the given number of milliseconds.",
		Usage:   "delay MILLISECONDS",
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			if len(args) != 1 {
				return usageError(def, "expected exactly one argument")
			}
			ms, err := strconv.Atoi(args[0])
			if err != nil || ms < 0 {
				return types.Fail("delay: invalid delay '%s'", args[0])
			}
			d := time.Duration(ms) * time.Millisecond
			if d > maxDelay {
				return types.Fail("delay: %s exceeds the maximum of %s", d, maxDelay)
			}

			var interrupted bool
			env.Suspend(func() {
				timer := time.NewTimer(d)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					interrupted = true
				}
			})
			if interrupted {
				return types.Fail("delay: interrupted")
			}
			return types.OK("")
		},
	}
}

// Run executes a script file from the tree with positional arguments.
func Run() commands.Command {
	def := commands.Definition{
		Name:    "run",
		Summary: "Execute a script file line by line. $1..$n, $@ and $# expand to the arguments.",
		Usage:   "run SCRIPT [ARG]...",
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			if len(args) == 0 {
				return usageError(def, "missing script operand")
			}
			if env.Scripts == nil {
				return types.Fail("run: scripts are not available here")
			}
			return env.Scripts.RunScript(ctx, args[0], args[1:])
		},
	}
}

// Jobs lists background jobs.
func Jobs() commands.Command {
	return commands.Func{
		Def: commands.Definition{
			Name:    "jobs",
			Summary: "List background jobs.",
			Usage:   "jobs",
		},
		Run: func(_ context.Context, _ []string, env *commands.Env) types.Result {
			if env.Jobs == nil {
				return types.OK("")
			}
			jobs := env.Jobs.List()
			lines := make([]string, 0, len(jobs))
			for _, j := range jobs {
				lines = append(lines, fmt.Sprintf("[%d] %-9s %s", j.ID, j.State, j.Command))
			}
			return types.OKWithHint(joinLines(lines), types.HintInfo)
		},
	}
}
