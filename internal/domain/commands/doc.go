// Package commands defines the command capability interface, the registry
// that dispatches command names to implementations, and the per-invocation
// environment handed to every command.
//
// Commands never return Go errors across the dispatch boundary: each one
// produces a types.Result, and Registry.Execute converts panics into a
// generic failure so the command loop never terminates abnormally.
package commands
