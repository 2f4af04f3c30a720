// Package syntax turns a command line into a Pipeline.
//
// The grammar is intentionally small:
//
//	command [args...] [| command [args...]]* [(> | >>) filename] [&]
//
// Quoted strings are taken verbatim with no escape processing. There is
// no variable expansion beyond the positional parameters that scripts
// substitute before a line is parsed (see ExpandPositional).
package syntax
