// Package types provides the result type shared by commands, the executor
// and the API.
//
// A Result carries a command's output or error together with a
// presentation hint that tells sinks how to render it. Constructors:
//   - OK, OKWithHint: success
//   - Fail: failure with a formatted message
//   - FailWithOutput: failure that still produced output
package types
