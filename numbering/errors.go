package numbering

import (
	"errors"
	"fmt"
)

// ErrNumbering matches every *NumberingError via errors.Is.
var ErrNumbering = errors.New("numbering failed")

// Op names a Processor operation in errors and logs.
type Op string

const (
	OpRenumberArticles        Op = "renumberArticles"
	OpRenumberImportedArticle Op = "renumberImportedArticle"
	OpRenumberRecitals        Op = "renumberRecitals"
	OpRenumberImportedRecital Op = "renumberImportedRecital"
)

func (o Op) String() string { return string(o) }

func (o Op) describe() string {
	switch o {
	case OpRenumberArticles:
		return "articles"
	case OpRenumberImportedArticle:
		return "imported article"
	case OpRenumberRecitals:
		return "recitals"
	case OpRenumberImportedRecital:
		return "imported recital"
	}
	return string(o)
}

// NumberingError is returned when a fragment could not be navigated or
// edited. No partial output accompanies it.
type NumberingError struct {
	Op       Op
	Fragment string // root element identity, e.g. "article#art_3"; may be empty
	Err      error
}

func (e *NumberingError) Error() string {
	msg := "unable to renumber " + e.Op.describe()
	if e.Fragment != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Fragment)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *NumberingError) Unwrap() error { return e.Err }

func (e *NumberingError) Is(target error) bool { return target == ErrNumbering }
