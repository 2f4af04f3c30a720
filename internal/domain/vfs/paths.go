package vfs

import "strings"

// Separator is the path separator of the virtual tree.
const Separator = "/"

// RootPath is the absolute path of the tree root.
const RootPath = "/"

// ResolveAbsolute turns target into a normalized absolute path. Relative
// targets start from base. "." is skipped and ".." pops one segment,
// clamped at the root. It never fails and never touches the tree.
func ResolveAbsolute(target, base string) string {
	var segments []string
	if !strings.HasPrefix(target, Separator) {
		segments = splitSegments(base)
	}

	for _, seg := range strings.Split(target, Separator) {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return RootPath
	}
	return Separator + strings.Join(segments, Separator)
}

// splitSegments returns the non-empty segments of an already absolute path.
// Base paths are normalized by construction, but "." and ".." are resolved
// here too so a malformed base cannot escape the root.
func splitSegments(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, Separator) {
		switch seg {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

// Dir returns the parent of a normalized absolute path. The parent of the
// root is the root.
func Dir(p string) string {
	idx := strings.LastIndex(p, Separator)
	if idx <= 0 {
		return RootPath
	}
	return p[:idx]
}

// Base returns the last segment of a normalized absolute path, or "/" for
// the root.
func Base(p string) string {
	if p == RootPath || p == "" {
		return RootPath
	}
	return p[strings.LastIndex(p, Separator)+1:]
}

// Join appends name to an absolute directory path.
func Join(dir, name string) string {
	if dir == RootPath {
		return RootPath + name
	}
	return dir + Separator + name
}

// IsWithin reports whether p equals ancestor or lies below it.
func IsWithin(p, ancestor string) bool {
	if ancestor == RootPath {
		return true
	}
	return p == ancestor || strings.HasPrefix(p, ancestor+Separator)
}

// IsDotSegment reports whether the last segment of a raw argument is "."
// or "..".
func IsDotSegment(arg string) bool {
	trimmed := strings.TrimRight(arg, Separator)
	if trimmed == "" {
		return false
	}
	last := trimmed[strings.LastIndex(trimmed, Separator)+1:]
	return last == "." || last == ".."
}
