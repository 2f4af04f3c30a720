package builtin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// failure collects per-item error lines for commands that keep going.
type failure struct {
	cmd   string
	lines []string
}

func (f *failure) add(format string, args ...interface{}) {
	f.lines = append(f.lines, f.cmd+": "+fmt.Sprintf(format, args...))
}

func (f *failure) addErr(err error) {
	if err == nil {
		return
	}
	f.lines = append(f.lines, f.cmd+": "+err.Error())
}

func (f *failure) failed() bool { return len(f.lines) > 0 }

// result finishes a command: any collected error makes it a failure that
// still carries the output produced so far.
func (f *failure) result(output []string, hint types.PresentationHint) types.Result {
	out := joinLines(output)
	if f.failed() {
		return types.FailWithOutput(out, strings.Join(f.lines, "\n"))
	}
	return types.OKWithHint(out, hint)
}

func usageError(def commands.Definition, format string, args ...interface{}) types.Result {
	msg := fmt.Sprintf(format, args...)
	return types.Fail("%s: %s\n%s", def.Name, msg, def.UsageLine())
}

// parse wraps commands.ParseFlags with the usage-error convention.
func parse(def commands.Definition, args []string) (commands.Flags, []string, *types.Result) {
	flags, operands, err := commands.ParseFlags(args, def.Flags)
	if err != nil {
		res := usageError(def, "%v", err)
		return flags, nil, &res
	}
	return flags, operands, nil
}

func permissionDenied(op, path string) error {
	return &vfs.PathError{Op: op, Path: path, Err: vfs.ErrPermission}
}

func isNotFound(err error) bool {
	return errors.Is(err, vfs.ErrNotFound)
}

// readFile resolves a file operand and checks read permission.
func readFile(env *commands.Env, arg string) (string, error) {
	info, err := env.Tree.Validate(arg, vfs.ValidateOptions{ExpectedType: vfs.TypeFile})
	if err != nil {
		return "", err
	}
	if !env.Can(info.Node, vfs.PermRead) {
		return "", permissionDenied("cannot open", arg)
	}
	return info.Node.Content, nil
}

// inputSource is one named chunk of text for filter commands.
type inputSource struct {
	name    string
	content string
}

// readInputs returns stdin when there are no operands, else the named
// files. Unreadable files are reported through fail and skipped.
func readInputs(env *commands.Env, operands []string, fail *failure) ([]inputSource, bool) {
	if len(operands) == 0 {
		if !env.HasStdin {
			return nil, false
		}
		return []inputSource{{name: "-", content: env.Stdin}}, true
	}
	sources := make([]inputSource, 0, len(operands))
	for _, arg := range operands {
		content, err := readFile(env, arg)
		if err != nil {
			fail.addErr(err)
			continue
		}
		sources = append(sources, inputSource{name: arg, content: content})
	}
	return sources, true
}

// splitLines splits text into lines, ignoring one trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
