package types

import "fmt"

// PresentationHint tells an output sink how a piece of text should be rendered.
type PresentationHint string

const (
	HintNone       PresentationHint = ""
	HintText       PresentationHint = "text"
	HintError      PresentationHint = "error"
	HintWarning    PresentationHint = "warning"
	HintSuccess    PresentationHint = "success"
	HintInfo       PresentationHint = "info"
	HintListing    PresentationHint = "listing"
	HintBackground PresentationHint = "background"
)

// Result is the uniform outcome of every command handler and pipeline.
// Empty Output or Error means the field is absent.
type Result struct {
	Success bool             `json:"success"`
	Output  string           `json:"output,omitempty"`
	Error   string           `json:"error,omitempty"`
	Hint    PresentationHint `json:"hint,omitempty"`
}

// OK returns a successful result carrying output.
func OK(output string) Result {
	return Result{Success: true, Output: output}
}

// OKWithHint returns a successful result with a presentation hint attached.
func OKWithHint(output string, hint PresentationHint) Result {
	return Result{Success: true, Output: output, Hint: hint}
}

// Fail returns a failed result with a formatted error message.
func Fail(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...), Hint: HintError}
}

// FailWithOutput returns a failed result that still carries partial output.
func FailWithOutput(output, message string) Result {
	return Result{Success: false, Output: output, Error: message, Hint: HintError}
}

// HasOutput reports whether the result carries visible output.
func (r Result) HasOutput() bool {
	return r.Output != ""
}
