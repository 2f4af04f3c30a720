package commands

import (
	"fmt"
	"strings"
)

// FlagSpec declares one option. Short and Long are alternative spellings
// of the same flag; Name is the key used to query the parsed result.
type FlagSpec struct {
	Name       string
	Short      rune
	Long       string
	TakesValue bool
	Help       string
}

func (f FlagSpec) label() string {
	var parts []string
	if f.Short != 0 {
		parts = append(parts, "-"+string(f.Short))
	}
	if f.Long != "" {
		parts = append(parts, "--"+f.Long)
	}
	label := strings.Join(parts, ", ")
	if f.TakesValue {
		label += " VALUE"
	}
	return label
}

// Flags is the result of ParseFlags.
type Flags struct {
	set    map[string]bool
	values map[string]string
}

// Has reports whether the named flag was given.
func (f Flags) Has(name string) bool { return f.set[name] }

// Value returns the value of a flag that takes one.
func (f Flags) Value(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// ParseFlags separates options from operands. Short flags combine ("-rf"),
// a value flag takes the rest of its cluster or the next argument, long
// flags accept "--name=value", and "--" ends option parsing. A lone "-" is
// an operand. Options may appear anywhere among the operands.
func ParseFlags(args []string, specs []FlagSpec) (Flags, []string, error) {
	flags := Flags{set: make(map[string]bool), values: make(map[string]string)}
	var operands []string

	byShort := make(map[rune]FlagSpec, len(specs))
	byLong := make(map[string]FlagSpec, len(specs))
	for _, s := range specs {
		if s.Short != 0 {
			byShort[s.Short] = s
		}
		if s.Long != "" {
			byLong[s.Long] = s
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			operands = append(operands, args[i+1:]...)
			return flags, operands, nil

		case strings.HasPrefix(arg, "--"):
			name, value, hasValue := strings.Cut(arg[2:], "=")
			spec, ok := byLong[name]
			if !ok {
				return flags, nil, fmt.Errorf("unrecognized option '--%s'", name)
			}
			if spec.TakesValue && !hasValue {
				if i+1 >= len(args) {
					return flags, nil, fmt.Errorf("option '--%s' requires an argument", name)
				}
				i++
				value = args[i]
			} else if !spec.TakesValue && hasValue {
				return flags, nil, fmt.Errorf("option '--%s' doesn't allow an argument", name)
			}
			flags.set[spec.Name] = true
			if spec.TakesValue {
				flags.values[spec.Name] = value
			}

		case len(arg) > 1 && arg[0] == '-':
			cluster := []rune(arg[1:])
			for j := 0; j < len(cluster); j++ {
				spec, ok := byShort[cluster[j]]
				if !ok {
					return flags, nil, fmt.Errorf("invalid option -- '%c'", cluster[j])
				}
				flags.set[spec.Name] = true
				if !spec.TakesValue {
					continue
				}
				value := string(cluster[j+1:])
				if value == "" {
					if i+1 >= len(args) {
						return flags, nil, fmt.Errorf("option requires an argument -- '%c'", cluster[j])
					}
					i++
					value = args[i]
				}
				flags.values[spec.Name] = value
				break
			}

		default:
			operands = append(operands, arg)
		}
	}
	return flags, operands, nil
}
