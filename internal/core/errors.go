package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeUserBanned       = "user_banned"
	ErrCodeUserMuted        = "user_muted"
	ErrCodeChannelProtected = "channel_protected"
	ErrCodeChannelNotFound  = "channel_not_found"
	ErrCodeMessageNotFound  = "message_not_found"
	ErrCodeUserNotFound     = "user_not_found"
	ErrCodeBadRequest       = "bad_request"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf builds a coded domain error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the domain error code from err, or "" if err carries none.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
