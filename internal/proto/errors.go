package proto

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty        = errors.New("empty message")
	ErrMalformed    = errors.New("malformed message")
	ErrBadTimestamp = errors.New("bad timestamp")
	ErrUnknownType  = errors.New("unknown message type")
)

// DecodeError describes why a wire line could not be decoded.
// Kind is one of the Err* sentinels and is matched with errors.Is.
type DecodeError struct {
	Kind   error
	Input  string
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

func decodeError(kind error, input, detail string) *DecodeError {
	return &DecodeError{Kind: kind, Input: input, Detail: detail}
}
