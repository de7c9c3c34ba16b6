// Package errors provides typed errors for keyfit.
package errors

import "fmt"

// ErrorCode identifies the type of error.
type ErrorCode string

const (
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrTargetInvalid    ErrorCode = "TARGET_INVALID"
	ErrEmptyDocument    ErrorCode = "EMPTY_DOCUMENT"
	ErrOracleAuthFailed ErrorCode = "ORACLE_AUTH_FAILED"
	ErrOracleFailed     ErrorCode = "ORACLE_FAILED"
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"
	ErrHistoryFailed    ErrorCode = "HISTORY_FAILED"
)

// KeyfitError represents a typed error with user-friendly hints.
type KeyfitError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Cause   error
}

func (e *KeyfitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *KeyfitError) Unwrap() error {
	return e.Cause
}

// New creates a new KeyfitError.
func New(code ErrorCode, message, hint string) *KeyfitError {
	return &KeyfitError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

// Wrap creates a new KeyfitError wrapping an existing error.
func Wrap(code ErrorCode, message, hint string, cause error) *KeyfitError {
	return &KeyfitError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   cause,
	}
}

// Is reports whether err is a KeyfitError with the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if ke, ok := err.(*KeyfitError); ok && ke.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ConfigNotFound returns an error for missing config file.
func ConfigNotFound(path string) *KeyfitError {
	return &KeyfitError{
		Code:    ErrConfigNotFound,
		Message: fmt.Sprintf("config file not found: %s", path),
		Hint:    "Create ~/.config/keyfit/config.yaml or pass --config",
	}
}

// ConfigInvalid returns an error for invalid config.
func ConfigInvalid(reason string) *KeyfitError {
	return &KeyfitError{
		Code:    ErrConfigInvalid,
		Message: fmt.Sprintf("invalid config: %s", reason),
		Hint:    "Check your config file at ~/.config/keyfit/config.yaml",
	}
}

// TargetInvalid returns an error for a malformed target spec.
func TargetInvalid(reason string) *KeyfitError {
	return &KeyfitError{
		Code:    ErrTargetInvalid,
		Message: fmt.Sprintf("invalid targets: %s", reason),
		Hint:    "Every range needs 0 <= min <= max, and a unit may appear in only one list",
	}
}

// EmptyDocument returns an error for text with no content but a nonzero length target.
func EmptyDocument(minChars int) *KeyfitError {
	return &KeyfitError{
		Code:    ErrEmptyDocument,
		Message: fmt.Sprintf("document is empty but at least %d characters are required", minChars),
		Hint:    "Provide generated text to optimize, or set char_range.min to 0",
	}
}

// OracleAuthFailed returns an error when the rewrite oracle has no credentials.
func OracleAuthFailed(provider, envVar string) *KeyfitError {
	return &KeyfitError{
		Code:    ErrOracleAuthFailed,
		Message: fmt.Sprintf("%s API authentication failed", provider),
		Hint:    fmt.Sprintf("Set %s, or run with --deterministic", envVar),
	}
}

// OracleFailed returns an error for a failed oracle call.
func OracleFailed(message string, cause error) *KeyfitError {
	return &KeyfitError{
		Code:    ErrOracleFailed,
		Message: fmt.Sprintf("oracle call failed: %s", message),
		Hint:    "Run with --deterministic to skip the rewrite oracle",
		Cause:   cause,
	}
}

// FetchFailed returns an error for a failed remote document fetch.
func FetchFailed(ref string, cause error) *KeyfitError {
	return &KeyfitError{
		Code:    ErrFetchFailed,
		Message: fmt.Sprintf("failed to fetch %s", ref),
		Hint:    "Check that the repository exists and you have access (gh auth login)",
		Cause:   cause,
	}
}

// HistoryFailed returns an error for run history storage failures.
func HistoryFailed(message string, cause error) *KeyfitError {
	return &KeyfitError{
		Code:    ErrHistoryFailed,
		Message: message,
		Hint:    "Run with --no-history to skip recording",
		Cause:   cause,
	}
}
