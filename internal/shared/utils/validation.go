package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits for values crossing the API boundary
const (
	MaxLineLength     = 16 * 1024 // single command line
	MaxUsernameLength = 32
	MinUsernameLength = 1
	MaxScriptArgs     = 64
)

// UsernamePattern allows lowercase letters, digits, underscores and hyphens,
// starting with a letter or underscore
var UsernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateUsername validates a tree owner / session user name
func ValidateUsername(username string) error {
	if err := ValidateString(username, "username", MinUsernameLength, MaxUsernameLength, true); err != nil {
		return err
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (lowercase letters, digits, '_' and '-' only)")
	}

	return nil
}

// ValidateCommandLine validates one submitted command line. Empty lines are
// allowed and treated as no-ops by the session.
func ValidateCommandLine(line string) error {
	if len(line) > MaxLineLength {
		return fmt.Errorf("command line exceeds %d bytes", MaxLineLength)
	}
	if !utf8.ValidString(line) {
		return fmt.Errorf("command line is not valid UTF-8")
	}
	if strings.ContainsAny(line, "\x00\n\r") {
		return fmt.Errorf("command line must be a single line")
	}
	return nil
}

// ValidateScriptArgs validates positional arguments passed to a script
func ValidateScriptArgs(args []string) error {
	if len(args) > MaxScriptArgs {
		return fmt.Errorf("too many script arguments (maximum %d)", MaxScriptArgs)
	}
	for i, arg := range args {
		if err := ValidateString(arg, fmt.Sprintf("arg[%d]", i+1), 0, MaxLineLength, false); err != nil {
			return err
		}
	}
	return nil
}
