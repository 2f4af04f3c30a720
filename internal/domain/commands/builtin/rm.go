package builtin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Rm removes files, and directories with -r. Without -f every operand is
// confirmed first; -i asks even when -f is given.
func Rm() commands.Command {
	def := commands.Definition{
		Name:    "rm",
		Summary: "Remove files or directories.",
		Usage:   "rm [-rfi] FILE...",
		Flags: []commands.FlagSpec{
			{Name: "recursive", Short: 'r', Long: "recursive", Help: "remove directories and their contents recursively"},
			{Name: "recursive", Short: 'R'},
			{Name: "force", Short: 'f', Long: "force", Help: "ignore nonexistent files, never prompt"},
			{Name: "interactive", Short: 'i', Long: "interactive", Help: "prompt before every removal"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			r := remover{
				env:       env,
				recursive: flags.Has("recursive"),
				force:     flags.Has("force"),
				fail:      &failure{cmd: "rm"},
			}
			prompt := flags.Has("interactive") || !r.force

			if len(operands) == 0 {
				if r.force {
					return types.OK("")
				}
				return usageError(def, "missing operand")
			}

			var notes []string
			for _, arg := range operands {
				abs, node, ok := r.check(arg)
				if !ok {
					continue
				}
				if prompt && !env.Confirm(ctx, r.question(arg, node)...) {
					notes = append(notes, fmt.Sprintf("rm: skipped '%s'", arg))
					continue
				}
				if r.remove(vfs.Dir(abs), vfs.Base(abs)) {
					env.Log().Debug("removed", zap.String("path", abs), zap.Bool("recursive", r.recursive))
				}
			}
			return r.fail.result(notes, types.HintNone)
		},
	}
}

type remover struct {
	env       *commands.Env
	recursive bool
	force     bool
	fail      *failure
}

// check validates one operand before anything is asked or removed. All
// refusals happen here so that a refused operand leaves the tree untouched.
func (r *remover) check(arg string) (string, *vfs.Node, bool) {
	if vfs.IsDotSegment(arg) {
		r.fail.add("refusing to remove '.' or '..' directory: skipping '%s'", arg)
		return "", nil, false
	}
	info, err := r.env.Tree.Validate(arg, vfs.ValidateOptions{DisallowRoot: true})
	if err != nil {
		if r.force && isNotFound(err) {
			return "", nil, false
		}
		r.fail.add("cannot remove %v", err)
		return "", nil, false
	}
	if info.Node.IsDir() && !r.recursive {
		r.fail.add("cannot remove '%s': %v", arg, vfs.ErrIsDirectory)
		return "", nil, false
	}
	parent, _ := r.env.Tree.Resolve(vfs.Dir(info.Path))
	if !r.env.Can(parent, vfs.PermWrite) {
		r.fail.addErr(permissionDenied("cannot remove", arg))
		return "", nil, false
	}
	return info.Path, info.Node, true
}

func (r *remover) question(arg string, node *vfs.Node) []string {
	if node.IsDir() {
		return []string{fmt.Sprintf("Recursively remove directory '%s' and all of its contents?", arg)}
	}
	return []string{fmt.Sprintf("Remove file '%s'?", arg)}
}

// remove unlinks dir/name depth-first. A directory is only unlinked when
// all of its children went first.
func (r *remover) remove(dirPath, name string) bool {
	parent, ok := r.env.Tree.Resolve(dirPath)
	if !ok {
		return false
	}
	node, ok := parent.Child(name)
	if !ok {
		return r.force
	}
	p := vfs.Join(dirPath, name)
	if !r.env.Can(parent, vfs.PermWrite) {
		r.fail.addErr(permissionDenied("cannot remove", p))
		return false
	}

	if node.IsDir() {
		complete := true
		for _, child := range node.ChildNames() {
			if !r.remove(p, child) {
				complete = false
			}
		}
		if !complete {
			r.fail.add("cannot remove '%s': %v", p, vfs.ErrNotEmpty)
			return false
		}
	}

	if _, err := r.env.Tree.Unlink(dirPath, name, r.env.Now()); err != nil {
		r.fail.addErr(err)
		return false
	}
	r.env.MarkDirty()
	return true
}
