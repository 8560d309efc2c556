// Package fragment builds Akoma Ntoso article and recital fragments, the
// input of the imported-fragment renumbering operations.
package fragment

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// Kind is the structural element a fragment represents.
type Kind string

const (
	KindArticle Kind = "article"
	KindRecital Kind = "recital"
)

// ParseKind maps a flag value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindArticle, KindRecital:
		return k, nil
	}
	return "", fmt.Errorf("unknown fragment kind %q", s)
}

// Builder provides a fluent API for assembling a fragment.
type Builder struct {
	kind       Kind
	id         string
	num        string
	heading    string
	paragraphs []string
}

// New creates a builder for kind. id becomes the root's xml:id when non-empty.
func New(kind Kind, id string) *Builder {
	return &Builder{kind: kind, id: id}
}

// NewArticle creates an article builder.
func NewArticle(id string) *Builder { return New(KindArticle, id) }

// NewRecital creates a recital builder.
func NewRecital(id string) *Builder { return New(KindRecital, id) }

// Num sets the number text carried over from the source document.
func (b *Builder) Num(text string) *Builder {
	b.num = text
	return b
}

// Heading sets the article heading. Recitals have none.
func (b *Builder) Heading(text string) *Builder {
	b.heading = text
	return b
}

// Paragraph appends a body paragraph.
func (b *Builder) Paragraph(text string) *Builder {
	b.paragraphs = append(b.paragraphs, text)
	return b
}

// Build encodes the fragment without indentation.
func (b *Builder) Build() (string, error) {
	switch b.kind {
	case KindArticle, KindRecital:
	default:
		return "", fmt.Errorf("build fragment: unknown kind %q", b.kind)
	}
	if b.kind == KindRecital && b.heading != "" {
		return "", errors.New("build fragment: a recital cannot carry a heading")
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: string(b.kind)}}
	if b.id != "" {
		root.Attr = []xml.Attr{{Name: xml.Name{Local: "xml:id"}, Value: b.id}}
	}
	if err := enc.EncodeToken(root); err != nil {
		return "", err
	}
	if b.num != "" {
		if err := encodeText(enc, "num", b.num); err != nil {
			return "", err
		}
	}
	if b.heading != "" {
		if err := encodeText(enc, "heading", b.heading); err != nil {
			return "", err
		}
	}
	for _, p := range b.paragraphs {
		var err error
		if b.kind == KindArticle {
			err = encodeNested(enc, []string{"paragraph", "content", "p"}, p)
		} else {
			err = encodeText(enc, "p", p)
		}
		if err != nil {
			return "", err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeText(enc *xml.Encoder, name, text string) error {
	return encodeNested(enc, []string{name}, text)
}

// encodeNested writes text wrapped in the given element path.
func encodeNested(enc *xml.Encoder, path []string, text string) error {
	for _, name := range path {
		if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	for i := len(path) - 1; i >= 0; i-- {
		if err := enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: path[i]}}); err != nil {
			return err
		}
	}
	return nil
}
