package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// attrMode selects which attributes a copied node takes from its source.
type attrMode int

const (
	// attrReset gives copies the acting user, the default mode and now.
	attrReset attrMode = iota
	// attrPreserve carries owner, mode and mtime over.
	attrPreserve
	// attrKeepOwner carries owner and mode over and refreshes mtime.
	attrKeepOwner
)

// copyOutcome orders from best to worst so merges keep the maximum.
type copyOutcome int

const (
	copied copyOutcome = iota
	skipped
	failed
)

func worst(a, b copyOutcome) copyOutcome {
	if b > a {
		return b
	}
	return a
}

// copier implements the shared cp/mv conflict policy.
type copier struct {
	ctx         context.Context
	env         *commands.Env
	recursive   bool
	force       bool
	interactive bool
	attrs       attrMode
	fail        *failure
	notes       []string
}

func (c *copier) attributes(dst, src *vfs.Node) {
	switch c.attrs {
	case attrPreserve:
		dst.Owner, dst.Mode, dst.Mtime = src.Owner, src.Mode, src.Mtime
	case attrKeepOwner:
		dst.Owner, dst.Mode, dst.Mtime = src.Owner, src.Mode, c.env.Now()
	default:
		dst.Owner = c.env.User
		dst.Mode = vfs.DefaultFileMode
		if dst.IsDir() {
			dst.Mode = vfs.DefaultDirMode
		}
		dst.Mtime = c.env.Now()
	}
}

// copy places a copy of the node at srcPath at dstPath, which is the final
// name of the copy, not its containing directory.
func (c *copier) copy(srcPath, dstPath string) copyOutcome {
	src, ok := c.env.Tree.Resolve(srcPath)
	if !ok {
		c.fail.addErr(&vfs.PathError{Op: "cannot stat", Path: srcPath, Err: vfs.ErrNotFound})
		return failed
	}
	if !c.env.Can(src, vfs.PermRead) {
		c.fail.addErr(permissionDenied("cannot open", srcPath))
		return failed
	}
	if src.IsDir() {
		return c.copyDir(srcPath, src, dstPath)
	}
	return c.copyFile(srcPath, src, dstPath)
}

func (c *copier) copyFile(srcPath string, src *vfs.Node, dstPath string) copyOutcome {
	now := c.env.Now()
	dst, exists := c.env.Tree.Resolve(dstPath)
	if !exists {
		parent, ok := c.env.Tree.Resolve(vfs.Dir(dstPath))
		if !ok || !parent.IsDir() {
			c.fail.addErr(&vfs.PathError{Op: "cannot create regular file", Path: dstPath, Err: vfs.ErrNotFound})
			return failed
		}
		if !c.env.Can(parent, vfs.PermWrite) {
			c.fail.addErr(permissionDenied("cannot create regular file", dstPath))
			return failed
		}
		node := vfs.NewFile(src.Content, "", 0, now)
		c.attributes(node, src)
		if err := c.env.Tree.Link(vfs.Dir(dstPath), vfs.Base(dstPath), node, now); err != nil {
			c.fail.addErr(err)
			return failed
		}
		c.env.MarkDirty()
		return copied
	}

	if dst == src {
		c.fail.add("'%s' and '%s' are the same file", srcPath, dstPath)
		return failed
	}
	if dst.IsDir() {
		c.fail.add("cannot overwrite directory '%s' with non-directory", dstPath)
		return failed
	}
	switch {
	case c.interactive:
		if !c.env.Confirm(c.ctx, fmt.Sprintf("Overwrite '%s'?", dstPath)) {
			c.notes = append(c.notes, fmt.Sprintf("not overwriting '%s'", dstPath))
			return skipped
		}
	case c.force:
	default:
		c.fail.add("cannot overwrite '%s': %v", dstPath, vfs.ErrExists)
		return failed
	}
	if !c.env.Can(dst, vfs.PermWrite) {
		c.fail.addErr(permissionDenied("cannot overwrite", dstPath))
		return failed
	}

	node := vfs.NewFile(src.Content, "", 0, now)
	c.attributes(node, src)
	if err := c.env.Tree.Replace(vfs.Dir(dstPath), vfs.Base(dstPath), node, now); err != nil {
		c.fail.addErr(err)
		return failed
	}
	c.env.MarkDirty()
	return copied
}

func (c *copier) copyDir(srcPath string, src *vfs.Node, dstPath string) copyOutcome {
	if !c.recursive {
		c.notes = append(c.notes, fmt.Sprintf("-r not specified; omitting directory '%s'", srcPath))
		return skipped
	}
	if vfs.IsWithin(dstPath, srcPath) {
		c.fail.add("cannot copy a directory, '%s', into itself, '%s'", srcPath, dstPath)
		return failed
	}

	now := c.env.Now()
	dst, exists := c.env.Tree.Resolve(dstPath)
	if exists {
		if !dst.IsDir() {
			c.fail.add("cannot overwrite non-directory '%s' with directory '%s'", dstPath, srcPath)
			return failed
		}
		if !c.env.Can(dst, vfs.PermWrite) {
			c.fail.addErr(permissionDenied("cannot copy into", dstPath))
			return failed
		}
	} else {
		parent, ok := c.env.Tree.Resolve(vfs.Dir(dstPath))
		if !ok || !parent.IsDir() {
			c.fail.addErr(&vfs.PathError{Op: "cannot create directory", Path: dstPath, Err: vfs.ErrNotFound})
			return failed
		}
		if !c.env.Can(parent, vfs.PermWrite) {
			c.fail.addErr(permissionDenied("cannot create directory", dstPath))
			return failed
		}
		dst = vfs.NewDirectory(c.env.User, vfs.DefaultDirMode, now)
		if err := c.env.Tree.Link(vfs.Dir(dstPath), vfs.Base(dstPath), dst, now); err != nil {
			c.fail.addErr(err)
			return failed
		}
		c.env.MarkDirty()
	}

	outcome := copied
	for _, name := range src.ChildNames() {
		outcome = worst(outcome, c.copy(vfs.Join(srcPath, name), vfs.Join(dstPath, name)))
	}
	// A fresh directory stays writable by the acting user until its
	// children are in, then takes its final attributes.
	if !exists {
		c.attributes(dst, src)
	}
	return outcome
}

// copyTarget computes where each source lands: inside dest when dest is an
// existing directory, else dest itself, which then allows only one source.
func copyTarget(env *commands.Env, sources []string, dest string) (func(src string) string, error) {
	destAbs := env.Tree.Abs(dest)
	node, ok := env.Tree.Resolve(destAbs)
	if ok && node.IsDir() {
		return func(src string) string {
			return vfs.Join(destAbs, vfs.Base(env.Tree.Abs(src)))
		}, nil
	}
	if len(sources) > 1 {
		return nil, &vfs.PathError{Op: "target", Path: dest, Err: vfs.ErrNotDirectory}
	}
	return func(string) string { return destAbs }, nil
}

// Cp copies files and directory trees.
func Cp() commands.Command {
	def := commands.Definition{
		Name:    "cp",
		Summary: "Copy files and directories.",
		Usage:   "cp [-rfip] SOURCE... DEST",
		Flags: []commands.FlagSpec{
			{Name: "recursive", Short: 'r', Long: "recursive", Help: "copy directories recursively"},
			{Name: "recursive", Short: 'R'},
			{Name: "force", Short: 'f', Long: "force", Help: "overwrite existing files"},
			{Name: "interactive", Short: 'i', Long: "interactive", Help: "prompt before overwrite"},
			{Name: "preserve", Short: 'p', Long: "preserve", Help: "preserve owner, mode and timestamps"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			if len(operands) < 2 {
				return usageError(def, "missing destination file operand")
			}
			sources, dest := operands[:len(operands)-1], operands[len(operands)-1]
			target, err := copyTarget(env, sources, dest)
			if err != nil {
				return types.Fail("cp: %v", err)
			}

			c := &copier{
				ctx:         ctx,
				env:         env,
				recursive:   flags.Has("recursive"),
				force:       flags.Has("force"),
				interactive: flags.Has("interactive"),
				fail:        &failure{cmd: "cp"},
			}
			if flags.Has("preserve") {
				c.attrs = attrPreserve
			}

			for _, src := range sources {
				if _, err := env.Tree.Validate(src, vfs.ValidateOptions{}); err != nil {
					c.fail.add("cannot stat %v", err)
					continue
				}
				c.copy(env.Tree.Abs(src), target(src))
			}
			return c.result("cp")
		},
	}
}

func (c *copier) result(cmd string) types.Result {
	notes := make([]string, len(c.notes))
	for i, n := range c.notes {
		notes[i] = cmd + ": " + n
	}
	if !c.fail.failed() && len(notes) > 0 {
		return types.OKWithHint(strings.Join(notes, "\n"), types.HintWarning)
	}
	return c.fail.result(notes, types.HintNone)
}

// Mv moves files and directories by copying them and then unlinking the
// source. The source stays in place unless everything below it was copied.
func Mv() commands.Command {
	def := commands.Definition{
		Name:    "mv",
		Summary: "Move or rename files and directories.",
		Usage:   "mv [-fi] SOURCE... DEST",
		Flags: []commands.FlagSpec{
			{Name: "force", Short: 'f', Long: "force", Help: "overwrite existing files"},
			{Name: "interactive", Short: 'i', Long: "interactive", Help: "prompt before overwrite"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			if len(operands) < 2 {
				return usageError(def, "missing destination file operand")
			}
			sources, dest := operands[:len(operands)-1], operands[len(operands)-1]
			target, err := copyTarget(env, sources, dest)
			if err != nil {
				return types.Fail("mv: %v", err)
			}

			c := &copier{
				ctx:         ctx,
				env:         env,
				recursive:   true,
				force:       flags.Has("force"),
				interactive: flags.Has("interactive"),
				attrs:       attrKeepOwner,
				fail:        &failure{cmd: "mv"},
			}

			for _, src := range sources {
				if vfs.IsDotSegment(src) {
					c.fail.add("cannot move '%s': Invalid argument", src)
					continue
				}
				info, err := env.Tree.Validate(src, vfs.ValidateOptions{DisallowRoot: true})
				if err != nil {
					c.fail.add("cannot stat %v", err)
					continue
				}
				dst := target(src)
				if dst == info.Path {
					c.notes = append(c.notes, fmt.Sprintf("'%s' and '%s' are the same file", src, dest))
					continue
				}
				if info.Node.IsDir() && vfs.IsWithin(dst, info.Path) {
					c.fail.add("cannot move '%s' to a subdirectory of itself, '%s'", src, dst)
					continue
				}
				parent, _ := env.Tree.Resolve(vfs.Dir(info.Path))
				if !env.Can(parent, vfs.PermWrite) {
					c.fail.addErr(permissionDenied("cannot move", src))
					continue
				}

				if c.copy(info.Path, dst) != copied {
					continue
				}
				if _, err := env.Tree.Unlink(vfs.Dir(info.Path), vfs.Base(info.Path), env.Now()); err != nil {
					c.fail.add("copied '%s' to '%s' but could not remove the source: %v", src, dst, err)
					continue
				}
				env.MarkDirty()
			}
			return c.result("mv")
		},
	}
}
