package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/syntax"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

// RunScript implements executor.ScriptHost. It is reached through the run
// command, so the executor gate is already held.
func (s *Session) RunScript(ctx context.Context, path string, args []string, run commands.Runner) types.Result {
	info, err := s.tree.Validate(path, vfs.ValidateOptions{ExpectedType: vfs.TypeFile})
	if err != nil {
		return types.Fail("run: %v", err)
	}
	if !s.tree.Can(info.Node, s.User, vfs.PermRead) {
		return types.Fail("run: cannot open '%s': %v", path, vfs.ErrPermission)
	}
	return s.runSource(ctx, info.Path, info.Node.Content, args, run)
}

// runSource runs each line of content through run, stopping at the first
// failing line. Only one script runs at a time.
func (s *Session) runSource(ctx context.Context, name, content string, args []string, run commands.Runner) types.Result {
	if err := utils.ValidateScriptArgs(args); err != nil {
		return types.Fail("run: %v", err)
	}
	if !s.scripting.CompareAndSwap(false, true) {
		return types.Fail("run: %s: a script is already running", name)
	}
	defer s.scripting.Store(false)

	log := s.log.With(zap.String("script", name))
	log.Debug("script started", zap.Int("args", len(args)))

	var out []string
	for _, line := range syntax.ScriptLines(content, args) {
		res := run.RunLine(ctx, line.Text)
		if res.Output != "" {
			out = append(out, res.Output)
		}
		if !res.Success {
			msg := fmt.Sprintf("run: %s: line %d: %s", name, line.Number, line.Text)
			if res.Error != "" && res.Error != line.Text {
				msg += ": " + res.Error
			}
			log.Debug("script aborted", zap.Int("line", line.Number))
			return types.FailWithOutput(strings.Join(out, "\n"), msg)
		}
	}
	return types.OK(strings.Join(out, "\n"))
}
