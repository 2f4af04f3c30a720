// Package builtin holds the shell's built-in commands.
//
// Every command follows the same shape: parse flags, validate path
// operands against the tree, check permissions for the acting user,
// mutate, then call env.MarkDirty so the session persists the change.
// Recursive operations (cp, mv, rm, find) keep going after a per-item
// failure and report every failure at the end.
package builtin

import "github.com/aedmark/OopisOS-sub001/internal/domain/commands"

// All returns every built-in command.
func All() []commands.Command {
	return []commands.Command{
		Echo(), Cat(), Pwd(), Cd(), Ls(),
		Mkdir(), Touch(), Rm(), Rmdir(), Cp(), Mv(), Find(),
		Chmod(), Chown(), Whoami(),
		Delay(), Run(), Jobs(),
		File(), B2sum(), Grep(), Wc(), Head(), Tail(),
		Help(),
	}
}

// Register adds every built-in command to r.
func Register(r *commands.Registry) error {
	for _, cmd := range All() {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}
