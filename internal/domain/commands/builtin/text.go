package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aedmark/OopisOS-sub001/internal/domain/commands"
	"github.com/aedmark/OopisOS-sub001/internal/domain/vfs"
	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
	"github.com/aedmark/OopisOS-sub001/internal/shared/utils"
)

// Grep prints lines matching a regular expression.
func Grep() commands.Command {
	def := commands.Definition{
		Name:    "grep",
		Summary: "Print lines that match a pattern.",
		Usage:   "grep [-ivnc] PATTERN [FILE]...",
		Flags: []commands.FlagSpec{
			{Name: "ignore-case", Short: 'i', Long: "ignore-case", Help: "ignore case distinctions"},
			{Name: "invert", Short: 'v', Long: "invert-match", Help: "select non-matching lines"},
			{Name: "number", Short: 'n', Long: "line-number", Help: "prefix each line with its line number"},
			{Name: "count", Short: 'c', Long: "count", Help: "print only a count of matching lines"},
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
				return usageError(def, "missing pattern")
			}
			pattern := operands[0]
			if flags.Has("ignore-case") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return types.Fail("grep: invalid pattern '%s': %v", operands[0], err)
			}

			fail := &failure{cmd: "grep"}
			sources, ok := readInputs(env, operands[1:], fail)
			if !ok {
				return usageError(def, "no input")
			}
			prefix := len(sources) > 1
			invert := flags.Has("invert")

			var out []string
			for _, src := range sources {
				count := 0
				for i, line := range splitLines(src.content) {
					if re.MatchString(line) == invert {
						continue
					}
					count++
					if flags.Has("count") {
						continue
					}
					if flags.Has("number") {
						line = strconv.Itoa(i+1) + ":" + line
					}
					if prefix {
						line = src.name + ":" + line
					}
					out = append(out, line)
				}
				if flags.Has("count") {
					line := strconv.Itoa(count)
					if prefix {
						line = src.name + ":" + line
					}
					out = append(out, line)
				}
			}
			return fail.result(out, types.HintText)
		},
	}
}

// Wc counts lines, words and bytes.
func Wc() commands.Command {
	def := commands.Definition{
		Name:    "wc",
		Summary: "Print line, word and byte counts.",
		Usage:   "wc [-lwc] [FILE]...",
		Flags: []commands.FlagSpec{
			{Name: "lines", Short: 'l', Long: "lines", Help: "print the line counts"},
			{Name: "words", Short: 'w', Long: "words", Help: "print the word counts"},
			{Name: "bytes", Short: 'c', Long: "bytes", Help: "print the byte counts"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			fail := &failure{cmd: "wc"}
			sources, ok := readInputs(env, operands, fail)
			if !ok {
				return usageError(def, "no input")
			}

			show := [3]bool{flags.Has("lines"), flags.Has("words"), flags.Has("bytes")}
			if !show[0] && !show[1] && !show[2] {
				show = [3]bool{true, true, true}
			}
			format := func(counts [3]int, name string) string {
				var fields []string
				for i, n := range counts {
					if show[i] {
						fields = append(fields, fmt.Sprintf("%7d", n))
					}
				}
				line := strings.Join(fields, " ")
				if name != "-" {
					line += " " + name
				}
				return line
			}

			var out []string
			var total [3]int
			for _, src := range sources {
				counts := [3]int{
					len(splitLines(src.content)),
					len(strings.Fields(src.content)),
					len(src.content),
				}
				for i := range total {
					total[i] += counts[i]
				}
				out = append(out, format(counts, src.name))
			}
			if len(sources) > 1 {
				out = append(out, format(total, "total"))
			}
			return fail.result(out, types.HintText)
		},
	}
}

// Head prints the first lines of its input.
func Head() commands.Command {
	return lineWindow("head", "Output the first part of files.", func(lines []string, n int) []string {
		if n < len(lines) {
			return lines[:n]
		}
		return lines
	})
}

// Tail prints the last lines of its input.
func Tail() commands.Command {
	return lineWindow("tail", "Output the last part of files.", func(lines []string, n int) []string {
		if n < len(lines) {
			return lines[len(lines)-n:]
		}
		return lines
	})
}

func lineWindow(name, summary string, pick func([]string, int) []string) commands.Command {
	def := commands.Definition{
		Name:    name,
		Summary: summary,
		Usage:   name + " [-n LINES] [FILE]...",
		Flags: []commands.FlagSpec{
			{Name: "lines", Short: 'n', Long: "lines", TakesValue: true, Help: "number of lines (default 10)"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			n := 10
			if v, ok := flags.Value("lines"); ok {
				parsed, err := strconv.Atoi(v)
				if err != nil || parsed < 0 {
					return types.Fail("%s: invalid number of lines: '%s'", name, v)
				}
				n = parsed
			}

			fail := &failure{cmd: name}
			sources, ok := readInputs(env, operands, fail)
			if !ok {
				return usageError(def, "no input")
			}
			var out []string
			for i, src := range sources {
				if len(sources) > 1 {
					if i > 0 {
						out = append(out, "")
					}
					out = append(out, "==> "+src.name+" <==")
				}
				out = append(out, pick(splitLines(src.content), n)...)
			}
			return fail.result(out, types.HintText)
		},
	}
}

// File reports the detected content type of each operand.
func File() commands.Command {
	def := commands.Definition{
		Name:    "file",
		Summary: "Determine file type.",
		Usage:   "file FILE...",
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			if len(args) == 0 {
				return usageError(def, "missing file operand")
			}
			fail := &failure{cmd: "file"}
			var out []string
			for _, arg := range args {
				info, err := env.Tree.Validate(arg, vfs.ValidateOptions{})
				if err != nil {
					fail.add("cannot open %v", err)
					continue
				}
				switch {
				case info.Node.IsDir():
					out = append(out, arg+": directory")
				case !env.Can(info.Node, vfs.PermRead):
					fail.addErr(permissionDenied("cannot open", arg))
				case info.Node.Content == "":
					out = append(out, arg+": empty")
				default:
					mt := mimetype.Detect([]byte(info.Node.Content))
					out = append(out, arg+": "+mt.String())
				}
			}
			return fail.result(out, types.HintText)
		},
	}
}

// B2sum prints BLAKE2b checksums in the coreutils format.
func B2sum() commands.Command {
	def := commands.Definition{
		Name:    "b2sum",
		Summary: "Compute BLAKE2b message digests.",
		Usage:   "b2sum [-l BITS] [FILE]...",
		Flags: []commands.FlagSpec{
			{Name: "length", Short: 'l', Long: "length", TakesValue: true, Help: "digest length in bits, a multiple of 8 up to 512"},
		},
	}
	return commands.Func{
		Def: def,
		Run: func(_ context.Context, args []string, env *commands.Env) types.Result {
			flags, operands, bad := parse(def, args)
			if bad != nil {
				return *bad
			}
			size := 64
			if v, ok := flags.Value("length"); ok {
				bits, err := strconv.Atoi(v)
				if err != nil || bits <= 0 || bits > 512 || bits%8 != 0 {
					return types.Fail("b2sum: invalid length: '%s'", v)
				}
				size = bits / 8
			}

			fail := &failure{cmd: "b2sum"}
			sources, ok := readInputs(env, operands, fail)
			if !ok {
				return usageError(def, "no input")
			}
			var out []string
			for _, src := range sources {
				sum, err := utils.Blake2bHex([]byte(src.content), size)
				if err != nil {
					fail.addErr(err)
					continue
				}
				out = append(out, sum+"  "+src.name)
			}
			return fail.result(out, types.HintText)
		},
	}
}
