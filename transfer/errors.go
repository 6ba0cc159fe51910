package transfer

import (
	"errors"
	"fmt"
)

// ProtocolErrorKind classifies transfer framing errors.
type ProtocolErrorKind int

const (
	// ErrorPartial indicates a truncated prefix, metadata block, or byte stream.
	ErrorPartial ProtocolErrorKind = iota
	// ErrorTooLarge indicates a metadata block exceeding MaxHeaderSize.
	ErrorTooLarge
	// ErrorDecode indicates an undecodable or invalid metadata block.
	ErrorDecode
)

// ProtocolError represents a framing error during file retrieval.
type ProtocolError struct {
	Kind ProtocolErrorKind
	Msg  string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is a transfer framing error.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
