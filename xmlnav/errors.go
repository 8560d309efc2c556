package xmlnav

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrNavigation matches every *Error returned by this package via errors.Is.
var ErrNavigation = errors.New("xml navigation failed")

type ErrorType string

const (
	ErrMalformed ErrorType = "malformed"
	ErrEncoding  ErrorType = "encoding"
	ErrEmpty     ErrorType = "empty"
)

// Error wraps a decoding problem that stopped the cursor, with the position
// where it was detected.
type Error struct {
	Type    ErrorType
	Message string
	Line    int // 0 when the decoder did not report one
	Offset  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrNavigation as a match so callers need not know the concrete type.
func (e *Error) Is(target error) bool { return target == ErrNavigation }

// wrapXMLError classifies a decoder error. badCharset is the encoding label
// rejected by the cursor's CharsetReader, if any.
func wrapXMLError(err error, offset int, badCharset string) error {
	if badCharset != "" {
		return &Error{Type: ErrEncoding, Message: fmt.Sprintf("unsupported encoding %q", badCharset), Offset: offset, Err: err}
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		typ := ErrMalformed
		if se.Msg == "invalid UTF-8" {
			typ = ErrEncoding
		}
		return &Error{Type: typ, Message: "parse xml", Line: se.Line, Offset: offset, Err: err}
	}
	return &Error{Type: ErrMalformed, Message: "parse xml", Offset: offset, Err: err}
}
