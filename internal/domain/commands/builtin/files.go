package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

const lsTimeLayout = "2006-01-02 15:04"

// Ls lists directory contents.
func Ls() commands.Command {
	def := commands.Definition{
		Name:    "ls",
		Summary: "List directory contents.",
		Usage:   "ls [-laR] [PATH]...",
		Flags: []commands.FlagSpec{
			{Name: "long", Short: 'l', Help: "use a long listing format"},
			{Name: "all", Short: 'a', Long: "all", Help: "do not ignore entries starting with ."},
			{Name: "recursive", Short: 'R', Long: "recursive", Help: "list subdirectories recursively"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			if len(operands) == 0 {
				operands = []string{"."}
			}

			l := lister{
				env:       env,
				long:      flags.Has("long"),
				all:       flags.Has("all"),
				recursive: flags.Has("recursive"),
				fail:      &failure{cmd: "ls"},
			}
			headers := len(operands) > 1 || l.recursive

			var blocks []string
			for _, arg := range operands {
				info, err := env.Tree.Validate(arg, vfs.ValidateOptions{})
				if err != nil {
					l.fail.add("cannot access %v", err)
					continue
				}
				if !info.Node.IsDir() {
					blocks = append(blocks, l.entry(vfs.Base(info.Path), info.Node))
					continue
				}
				blocks = append(blocks, l.directory(arg, info.Path, info.Node, headers)...)
			}
			sep := "\n"
			if headers {
				sep = "\n\n"
			}
			out := strings.Join(blocks, sep)
			if l.fail.failed() {
				return types.FailWithOutput(out, strings.Join(l.fail.lines, "\n"))
			}
			return types.OKWithHint(out, types.HintListing)
		},
	}
}

type lister struct {
	env       *commands.Env
	long      bool
	all       bool
	recursive bool
	fail      *failure
}

func (l lister) entry(name string, node *vfs.Node) string {
	if node.IsDir() && !l.long {
		name += "/"
	}
	if !l.long {
		return name
	}
	return fmt.Sprintf("%s %-8s %6d %s %s",
		vfs.FormatMode(node), node.Owner, node.Size(), node.Mtime.Format(lsTimeLayout), name)
}

// directory renders one listing block and, with -R, the blocks of every
// readable subdirectory below it.
func (l lister) directory(display, abs string, node *vfs.Node, header bool) []string {
	if !l.env.Can(node, vfs.PermRead) {
		l.fail.add("cannot open directory '%s': %v", display, vfs.ErrPermission)
		return nil
	}

	var lines []string
	if header {
		lines = append(lines, display+":")
	}
	var subdirs []string
	for _, name := range node.ChildNames() {
		if !l.all && strings.HasPrefix(name, ".") {
			continue
		}
		child := node.Children[name]
		lines = append(lines, l.entry(name, child))
		if child.IsDir() {
			subdirs = append(subdirs, name)
		}
	}

	blocks := []string{strings.Join(lines, "\n")}
	if !l.recursive {
		return blocks
	}
	for _, name := range subdirs {
		childDisplay := strings.TrimSuffix(display, "/") + "/" + name
		blocks = append(blocks, l.directory(childDisplay, vfs.Join(abs, name), node.Children[name], true)...)
	}
	return blocks
}

// Mkdir creates directories. With -p, missing parents are created and an
// existing directory is not an error.
func Mkdir() commands.Command {
	def := commands.Definition{
		Name:    "mkdir",
		Summary: "Create directories.",
		Usage:   "mkdir [-p] DIRECTORY...",
		Flags: []commands.FlagSpec{
			{Name: "parents", Short: 'p', Long: "parents", Help: "make parent directories as needed, no error if existing"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			if len(operands) == 0 {
				return usageError(def, "missing operand")
			}
			parents := flags.Has("parents")

			fail := &failure{cmd: "mkdir"}
			for _, arg := range operands {
				if err := makeDirectory(env, arg, parents); err != nil {
					fail.addErr(err)
					continue
				}
				env.MarkDirty()
			}
			return fail.result(nil, types.HintNone)
		},
	}
}

const mkdirOp = "cannot create directory"

func makeDirectory(env *commands.Env, arg string, parents bool) error {
	abs := env.Tree.Abs(arg)
	now := env.Now()

	if existing, ok := env.Tree.Resolve(abs); ok {
		if parents && existing.IsDir() {
			return nil
		}
		return &vfs.PathError{Op: mkdirOp, Path: arg, Err: vfs.ErrExists}
	}

	if parents {
		if err := env.Tree.CheckCreate(abs, env.User); err != nil {
			return err
		}
		if _, err := env.Tree.CreateParents(abs, env.User, now); err != nil {
			return err
		}
	} else {
		parent, ok := env.Tree.Resolve(vfs.Dir(abs))
		if !ok {
			return &vfs.PathError{Op: mkdirOp, Path: arg, Err: vfs.ErrNotFound}
		}
		if !parent.IsDir() {
			return &vfs.PathError{Op: mkdirOp, Path: arg, Err: vfs.ErrNotDirectory}
		}
		if !env.Can(parent, vfs.PermWrite) {
			return permissionDenied(mkdirOp, arg)
		}
	}
	return env.Tree.Link(vfs.Dir(abs), vfs.Base(abs), vfs.NewDirectory(env.User, vfs.DefaultDirMode, now), now)
}

// Touch creates empty files or refreshes the mtime of existing ones.
func Touch() commands.Command {
	def := commands.Definition{
		Name:    "touch",
		Summary: "Update file timestamps, creating empty files as needed.",
		Usage:   "touch FILE...",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) == 0 {
				return usageError(def, "missing file operand")
			}
			fail := &failure{cmd: "touch"}
			now := env.Now()
			for _, arg := range args {
				abs := env.Tree.Abs(arg)
				if node, ok := env.Tree.Resolve(abs); ok {
					if !env.Can(node, vfs.PermWrite) {
						fail.add("cannot touch %v", permissionDenied("", arg))
						continue
					}
					node.Mtime = now
					env.MarkDirty()
					continue
				}
				if err := env.Tree.WriteFile(abs, "", vfs.Overwrite, env.User, now); err != nil {
					fail.addErr(err)
					continue
				}
				env.MarkDirty()
			}
			return fail.result(nil, types.HintNone)
		},
	}
}

// Rmdir removes empty directories.
func Rmdir() commands.Command {
	def := commands.Definition{
		Name:    "rmdir",
		Summary: "Remove empty directories.",
		Usage:   "rmdir DIRECTORY...",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) == 0 {
				return usageError(def, "missing operand")
			}
			fail := &failure{cmd: "rmdir"}
			for _, arg := range args {
				if vfs.IsDotSegment(arg) {
					fail.add("failed to remove '%s': Invalid argument", arg)
					continue
				}
				info, err := env.Tree.Validate(arg, vfs.ValidateOptions{
					ExpectedType: vfs.TypeDirectory,
					DisallowRoot: true,
				})
				if err != nil {
					fail.add("failed to remove %v", err)
					continue
				}
				if !info.Node.IsEmpty() {
					fail.add("failed to remove '%s': %v", arg, vfs.ErrNotEmpty)
					continue
				}
				parent, _ := env.Tree.Resolve(vfs.Dir(info.Path))
				if !env.Can(parent, vfs.PermWrite) {
					fail.add("failed to remove %v", permissionDenied("", arg))
					continue
				}
				if _, err := env.Tree.Unlink(vfs.Dir(info.Path), vfs.Base(info.Path), env.Now()); err != nil {
					fail.addErr(err)
					continue
				}
				env.MarkDirty()
			}
			return fail.result(nil, types.HintNone)
		},
	}
}

// Chmod sets the two-digit octal mode of files and directories.
func Chmod() commands.Command {
	def := commands.Definition{
		Name:    "chmod",
		Summary: "Change file mode bits. MODE is two octal digits: owner and other.",
		Usage:   "chmod MODE FILE...",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) < 2 {
				return usageError(def, "missing operand")
			}
			mode, err := vfs.ParseMode(args[0])
			if err != nil {
				return types.Fail("chmod: %v", err)
			}
			fail := &failure{cmd: "chmod"}
			for _, arg := range args[1:] {
				info, err := env.Tree.Validate(arg, vfs.ValidateOptions{})
				if err != nil {
					fail.add("cannot access %v", err)
					continue
				}
				if !env.Tree.CanAdminister(info.Node, env.User) {
					fail.add("changing permissions of %v", permissionDenied("", arg))
					continue
				}
				info.Node.Mode = mode
				env.Tree.UpdateMtime(info.Path, env.Now())
				env.MarkDirty()
			}
			return fail.result(nil, types.HintNone)
		},
	}
}

// Chown hands files to another user. Only the owner or the administrator
// may do so.
func Chown() commands.Command {
	def := commands.Definition{
		Name:    "chown",
		Summary: "Change file owner.",
		Usage:   "chown USER FILE...",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) < 2 {
				return usageError(def, "missing operand")
			}
			owner := args[0]
			if err := utils.ValidateUsername(owner); err != nil {
				return types.Fail("chown: invalid user '%s': %v", owner, err)
			}
			fail := &failure{cmd: "chown"}
			for _, arg := range args[1:] {
				info, err := env.Tree.Validate(arg, vfs.ValidateOptions{})
				if err != nil {
					fail.add("cannot access %v", err)
					continue
				}
				if !env.Tree.CanAdminister(info.Node, env.User) {
					fail.add("changing ownership of %v", permissionDenied("", arg))
					continue
				}
				info.Node.Owner = owner
				env.Tree.UpdateMtime(info.Path, env.Now())
				env.MarkDirty()
			}
			return fail.result(nil, types.HintNone)
		},
	}
}
