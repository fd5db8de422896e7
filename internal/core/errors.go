package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeProtocol       = "protocol_error"
	ErrCodeRoomFull       = "room_full"
	ErrCodeRoomNotFound   = "room_not_found"
	ErrCodeJoinFailed     = "join_failed"
	ErrCodeUsage          = "usage"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeNotImplemented = "not_implemented"
	ErrCodeUserNotFound   = "user_not_found"
	ErrCodeUnknownCommand = "unknown_command"
)

var (
	ErrDuplicateSession = errors.New("session id already registered")
	ErrSessionClosed    = errors.New("session closed")
	ErrInvalidRooms     = errors.New("invalid room configuration")
)

// CoreError wraps a code and the human-readable notice sent back to a session.
// Message may span several lines separated by '\n'.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
