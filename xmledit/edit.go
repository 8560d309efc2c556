// Package xmledit applies offset-addressed replacements to an immutable XML
// buffer. Every byte outside an edited span is copied through untouched.
package xmledit

import (
	"errors"
	"fmt"
)

// ErrInvalidEditSet matches every *InvalidEditSetError via errors.Is.
var ErrInvalidEditSet = errors.New("invalid edit set")

// Edit replaces Length bytes at Offset of the original buffer with Replacement.
// A zero Length inserts; an empty Replacement deletes.
type Edit struct {
	Offset      int
	Length      int
	Replacement []byte
}

// End returns the offset just past the replaced range.
func (e Edit) End() int { return e.Offset + e.Length }

// InvalidEditSetError reports an edit list that is unsorted, overlapping or
// outside the buffer. It indicates a bug in the caller, not bad input.
type InvalidEditSetError struct {
	Index  int // position of the offending edit
	Reason string
}

func (e *InvalidEditSetError) Error() string {
	return fmt.Sprintf("invalid edit set: edit %d: %s", e.Index, e.Reason)
}

func (e *InvalidEditSetError) Is(target error) bool { return target == ErrInvalidEditSet }

// Validate checks that edits are in ascending offset order, do not overlap and
// stay within a buffer of size n.
func Validate(n int, edits []Edit) error {
	prevEnd := 0
	for i, e := range edits {
		switch {
		case e.Offset < 0 || e.Length < 0:
			return &InvalidEditSetError{Index: i, Reason: fmt.Sprintf("negative range %d+%d", e.Offset, e.Length)}
		case e.Length > n-e.Offset:
			return &InvalidEditSetError{Index: i, Reason: fmt.Sprintf("range %d+%d exceeds buffer of %d bytes", e.Offset, e.Length, n)}
		case i > 0 && e.Offset < edits[i-1].Offset:
			return &InvalidEditSetError{Index: i, Reason: fmt.Sprintf("offset %d precedes offset %d", e.Offset, edits[i-1].Offset)}
		case i > 0 && e.Offset < prevEnd:
			return &InvalidEditSetError{Index: i, Reason: fmt.Sprintf("offset %d overlaps previous edit ending at %d", e.Offset, prevEnd)}
		}
		prevEnd = e.End()
	}
	return nil
}

// Apply materializes edits against buf in one pass and returns a new buffer.
// buf is never modified and the result never aliases it, even when edits is
// empty.
func Apply(buf []byte, edits []Edit) ([]byte, error) {
	if err := Validate(len(buf), edits); err != nil {
		return nil, err
	}
	size := len(buf)
	for _, e := range edits {
		size += len(e.Replacement) - e.Length
	}
	out := make([]byte, 0, size)
	pos := 0
	for _, e := range edits {
		out = append(out, buf[pos:e.Offset]...)
		out = append(out, e.Replacement...)
		pos = e.End()
	}
	return append(out, buf[pos:]...), nil
}
