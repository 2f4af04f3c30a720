package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Echo prints its arguments separated by spaces.
func Echo() commands.Command {
	return commands.Func{
		Def: commands.Definition{
			Name:    "echo",
			Summary: "Display a line of text.",
			Usage:   "echo [STRING]...",
		},
		Run: func(_ context.Context, args []string, _ *commands.Env) types.Result {
			return types.OK(strings.Join(args, " "))
		},
	}
}

// Pwd prints the current directory.
func Pwd() commands.Command {
	return commands.Func{
		Def: commands.Definition{
			Name:    "pwd",
			Summary: "Print the current working directory.",
			Usage:   "pwd",
		},
		Run: func(_ context.Context, _ []string, env *commands.Env) types.Result {
			return types.OK(env.Tree.Cwd())
		},
	}
}

// Whoami prints the acting user.
func Whoami() commands.Command {
	return commands.Func{
		Def: commands.Definition{
			Name:    "whoami",
			Summary: "Print the current user name.",
			Usage:   "whoami",
		},
		Run: func(_ context.Context, _ []string, env *commands.Env) types.Result {
			return types.OK(env.User)
		},
	}
}

// Cd changes the current directory. Entering a directory needs execute
// permission on it.
func Cd() commands.Command {
	def := commands.Definition{
		Name:    "cd",
		Summary: "Change the current directory. Without an argument, go to /.",
		Usage:   "cd [DIRECTORY]",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) > 1 {
				return usageError(def, "too many arguments")
			}
			target := vfs.RootPath
			if len(args) == 1 {
				target = args[0]
			}

			info, err := env.Tree.Validate(target, vfs.ValidateOptions{ExpectedType: vfs.TypeDirectory})
			if err != nil {
				return types.Fail("cd: %v", err)
			}
			if !env.Can(info.Node, vfs.PermExecute) {
				return types.Fail("cd: %v", permissionDenied("", target))
			}
			if err := env.Tree.SetCwd(info.Path); err != nil {
				return types.Fail("cd: %v", err)
			}
			return types.OK("")
		},
	}
}

// Cat concatenates files, or passes stdin through.
func Cat() commands.Command {
	def := commands.Definition{
		Name:    "cat",
		Summary: "Concatenate files and print them. Reads standard input when no file is given.",
		Usage:   "cat [FILE]...",
		Flags: []commands.FlagSpec{
			{Name: "number", Short: 'n', Long: "number", Help: "number all output lines"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}

			fail := &failure{cmd: "cat"}
			sources, ok := readInputs(env, operands, fail)
			if !ok {
				return usageError(def, "missing file operand")
			}

			var b strings.Builder
			for _, src := range sources {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte('\n')
				}
				b.WriteString(src.content)
			}
			out := b.String()

			if flags.Has("number") {
				lines := splitLines(out)
				for i, line := range lines {
					lines[i] = fmt.Sprintf("%6d\t%s", i+1, line)
				}
				out = strings.Join(lines, "\n")
			}
			return fail.result([]string{out}, types.HintText)
		},
	}
}

// Help lists commands, or shows one command's usage.
func Help() commands.Command {
	return commands.Func{
		Def: commands.Definition{
			Name:    "help",
			Summary: "List available commands or show help for one command.",
			Usage:   "help [COMMAND]",
		},
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if env.Registry == nil {
				return types.Fail("help: no command registry")
			}
			if len(args) > 0 {
				cmd, ok := env.Registry.Get(args[0])
				if !ok {
					return types.Fail("help: no such command '%s'", args[0])
				}
				return types.OKWithHint(cmd.Definition().Help(), types.HintInfo)
			}

			defs := env.Registry.List()
			width := 0
			for _, d := range defs {
				if len(d.Name) > width {
					width = len(d.Name)
				}
			}
			lines := make([]string, 0, len(defs)+1)
			lines = append(lines, "Available commands:")
			for _, d := range defs {
				lines = append(lines, fmt.Sprintf("  %-*s  %s", width, d.Name, d.Summary))
			}
			return types.OKWithHint(strings.Join(lines, "\n"), types.HintInfo)
		},
	}
}
