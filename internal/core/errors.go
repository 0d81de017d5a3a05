package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnknownType = "invalid_message"
	ErrCodeRateLimited = "rate_limited"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrNotInSession   = errors.New("sender is not a member of the session")
	ErrPartnerGone    = errors.New("partner is no longer connected")
	ErrUnknownCommand = errors.New("unknown command")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewCoreError builds a CoreError.
func NewCoreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
