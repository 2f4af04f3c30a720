// Package vfs implements the in-memory, permission-checked file tree.
//
// The tree is a single value owned by a Tree. Directories own their
// children exclusively and nodes are always reached by walking from the
// root with a normalized absolute path, so there are no back-references
// and no shared subtrees. Copies are deep clones.
//
// Core pieces:
//   - ResolveAbsolute: pure lexical path normalization against a base
//   - Mode / HasPermission / FormatMode: the 2-digit owner/other octal model
//   - Tree: resolution, validation, parent creation, mtime propagation, writes
//   - Persister: snapshot save/load through an external key-value store
//
// A Tree is not safe for concurrent use. Callers serialize access through
// the executor gate.
package vfs
