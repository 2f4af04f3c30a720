package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/syntax"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

const day = 24 * time.Hour

// visit is one node seen by the walk.
type visit struct {
	display string
	abs     string
	node    *vfs.Node
}

type test func(v visit) bool

type term struct {
	negate bool
	test   test
}

type actionKind int

const (
	actionPrint actionKind = iota
	actionExec
	actionDelete
)

type action struct {
	kind     actionKind
	template []string
}

// expression is an OR of AND groups.
type expression struct {
	groups   [][]term
	actions  []action
	minDepth int
	maxDepth int
}

func (e *expression) match(v visit) bool {
	if len(e.groups) == 0 {
		return true
	}
	for _, group := range e.groups {
		ok := true
		for _, t := range group {
			if t.test(v) == t.negate {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (e *expression) postOrder() bool {
	for _, a := range e.actions {
		if a.kind == actionDelete {
			return true
		}
	}
	return false
}

var valuedPrimaries = map[string]bool{
	"-name": true, "-iname": true, "-path": true, "-type": true, "-user": true,
	"-perm": true, "-mtime": true, "-maxdepth": true, "-mindepth": true,
}

// parseExpression reads tests, operators, options and actions.
func parseExpression(args []string, now time.Time) (*expression, error) {
	e := &expression{groups: [][]term{nil}, maxDepth: -1}
	negate := false

	push := func(t test) {
		last := len(e.groups) - 1
		e.groups[last] = append(e.groups[last], term{negate: negate, test: t})
		negate = false
	}
	value := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("missing argument to '%s'", args[i])
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "!", "-not":
			negate = !negate
			continue
		case "-a", "-and":
			continue
		case "-o", "-or":
			if negate || len(e.groups[len(e.groups)-1]) == 0 {
				return nil, fmt.Errorf("invalid expression; you have used a binary operator '%s' with nothing before it", arg)
			}
			e.groups = append(e.groups, nil)
			continue
		case "-print":
			e.actions = append(e.actions, action{kind: actionPrint})
			continue
		case "-delete":
			e.actions = append(e.actions, action{kind: actionDelete})
			continue
		case "-exec":
			end := -1
			for j := i + 1; j < len(args); j++ {
				if args[j] == ";" || args[j] == `\;` {
					end = j
					break
				}
			}
			if end < 0 || end == i+1 {
				return nil, fmt.Errorf("missing argument to '-exec'")
			}
			e.actions = append(e.actions, action{kind: actionExec, template: args[i+1 : end]})
			i = end
			continue
		}

		if !valuedPrimaries[arg] {
			return nil, fmt.Errorf("unknown predicate '%s'", arg)
		}
		v, err := value(i)
		if err != nil {
			return nil, err
		}
		switch arg {
		case "-name", "-iname":
			re, err := globToRegexp(v, arg == "-iname")
			if err != nil {
				return nil, fmt.Errorf("invalid pattern '%s': %w", v, err)
			}
			push(func(vi visit) bool { return re.MatchString(vfs.Base(vi.abs)) })
		case "-path":
			if !doublestar.ValidatePattern(v) {
				return nil, fmt.Errorf("invalid pattern '%s'", v)
			}
			pattern := v
			push(func(vi visit) bool {
				ok, _ := doublestar.Match(pattern, vi.abs)
				return ok
			})
		case "-type":
			var want vfs.NodeType
			switch v {
			case "f":
				want = vfs.TypeFile
			case "d":
				want = vfs.TypeDirectory
			default:
				return nil, fmt.Errorf("unknown argument to -type: %s", v)
			}
			push(func(vi visit) bool { return vi.node.Type == want })
		case "-user":
			owner := v
			push(func(vi visit) bool { return vi.node.Owner == owner })
		case "-perm":
			mode, err := vfs.ParseMode(v)
			if err != nil {
				return nil, err
			}
			push(func(vi visit) bool { return vi.node.Mode == mode })
		case "-mtime":
			t, err := mtimeTest(v, now)
			if err != nil {
				return nil, err
			}
			push(t)
		case "-maxdepth", "-mindepth":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid argument '%s' to '%s'", v, arg)
			}
			if arg == "-maxdepth" {
				e.maxDepth = n
			} else {
				e.minDepth = n
			}
		}
		i++
	}

	if negate {
		return nil, fmt.Errorf("expected an expression after '!'")
	}
	if last := len(e.groups) - 1; len(e.groups[last]) == 0 {
		if last > 0 {
			return nil, fmt.Errorf("expected an expression after '-o'")
		}
		e.groups = nil
	}
	if len(e.actions) == 0 {
		e.actions = []action{{kind: actionPrint}}
	}
	return e, nil
}

// mtimeTest compares age against N days: +N matches anything older than
// N days, -N anything newer, and plain N buckets age in whole days.
func mtimeTest(v string, now time.Time) (test, error) {
	cmp := 0
	digits := v
	switch {
	case strings.HasPrefix(v, "+"):
		cmp, digits = 1, v[1:]
	case strings.HasPrefix(v, "-"):
		cmp, digits = -1, v[1:]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid argument '%s' to '-mtime'", v)
	}
	limit := time.Duration(n) * day
	return func(vi visit) bool {
		age := now.Sub(vi.node.Mtime)
		switch cmp {
		case 1:
			return age > limit
		case -1:
			return age < limit
		default:
			return int(age/day) == n
		}
	}, nil
}

// Find walks directory trees and applies actions to the nodes that match
// an expression.
func Find() commands.Command {
	def := commands.Definition{
		Name:    "find",
		Summary: "Search for files in a directory hierarchy.",
		Usage:   "find [PATH...] [EXPRESSION]",
	}
	return commands.Func{
		Def: def,
		Run: func(ctx context.Context, args []string, env *commands.Env) types.Result {
			split := 0
			for split < len(args) && !isExpressionStart(args[split]) {
				split++
			}
			starts, rest := args[:split], args[split:]
			if len(starts) == 0 {
				starts = []string{"."}
			}

			expr, err := parseExpression(rest, env.Now())
			if err != nil {
				return usageError(def, "%v", err)
			}

			f := &finder{ctx: ctx, env: env, expr: expr, fail: &failure{cmd: "find"}}
			for _, start := range starts {
				info, err := env.Tree.Validate(start, vfs.ValidateOptions{})
				if err != nil {
					f.fail.addErr(err)
					continue
				}
				display := start
				if display != vfs.RootPath {
					display = strings.TrimRight(display, vfs.Separator)
				}
				f.walk(visit{display: display, abs: info.Path, node: info.Node}, 0)
			}
			return f.fail.result(f.output, types.HintText)
		},
	}
}

func isExpressionStart(arg string) bool {
	return arg == "!" || (strings.HasPrefix(arg, "-") && len(arg) > 1)
}

type finder struct {
	ctx    context.Context
	env    *commands.Env
	expr   *expression
	fail   *failure
	output []string
}

func (f *finder) walk(v visit, depth int) {
	post := f.expr.postOrder()
	if !post {
		f.evaluate(v, depth)
	}

	if v.node.IsDir() && (f.expr.maxDepth < 0 || depth < f.expr.maxDepth) {
		if !f.env.Can(v.node, vfs.PermRead) {
			f.fail.addErr(permissionDenied("", v.display))
		} else {
			for _, name := range v.node.ChildNames() {
				child, ok := v.node.Child(name)
				if !ok {
					continue
				}
				f.walk(visit{
					display: childDisplay(v.display, name),
					abs:     vfs.Join(v.abs, name),
					node:    child,
				}, depth+1)
			}
		}
	}

	if post {
		f.evaluate(v, depth)
	}
}

func childDisplay(parent, name string) string {
	if strings.HasSuffix(parent, vfs.Separator) {
		return parent + name
	}
	return parent + vfs.Separator + name
}

func (f *finder) evaluate(v visit, depth int) {
	if depth < f.expr.minDepth || !f.expr.match(v) {
		return
	}
	for _, a := range f.expr.actions {
		var ok bool
		switch a.kind {
		case actionPrint:
			f.output = append(f.output, v.display)
			ok = true
		case actionExec:
			ok = f.exec(a.template, v)
		case actionDelete:
			ok = f.delete(v)
		}
		if !ok {
			return
		}
	}
}

// exec runs the template as one command line with every "{}" replaced by
// the current path. Arguments are re-quoted so the line parses back into
// the same words.
func (f *finder) exec(template []string, v visit) bool {
	if f.env.Runner == nil {
		f.fail.add("-exec: no command runner available")
		return false
	}
	words := make([]string, len(template))
	for i, w := range template {
		q, err := syntax.QuoteArg(strings.ReplaceAll(w, "{}", v.display))
		if err != nil {
			f.fail.add("-exec: %v", err)
			return false
		}
		words[i] = q
	}
	line := strings.Join(words, " ")

	res := f.env.Runner.RunLine(f.ctx, line)
	if res.Output != "" {
		f.output = append(f.output, res.Output)
	}
	if !res.Success {
		f.fail.add("-exec '%s' failed: %s", line, res.Error)
		return false
	}
	return true
}

func (f *finder) delete(v visit) bool {
	if v.display == "." {
		return true
	}
	if v.abs == vfs.RootPath {
		f.fail.add("cannot delete '%s': %v", v.display, vfs.ErrRootForbidden)
		return false
	}
	if v.node.IsDir() && !v.node.IsEmpty() {
		f.fail.add("cannot delete '%s': %v", v.display, vfs.ErrNotEmpty)
		return false
	}
	parent, ok := f.env.Tree.Resolve(vfs.Dir(v.abs))
	if !ok || !f.env.Can(parent, vfs.PermWrite) {
		f.fail.addErr(permissionDenied("cannot delete", v.display))
		return false
	}
	if _, err := f.env.Tree.Unlink(vfs.Dir(v.abs), vfs.Base(v.abs), f.env.Now()); err != nil {
		f.fail.addErr(err)
		return false
	}
	f.env.MarkDirty()
	return true
}
