package xmledit

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

// ErrNoText is returned by UpdateToken for an element without a text token.
var ErrNoText = errors.New("element has no text token")

// Modifier queues edits against a pristine buffer. Offsets are always those
// of the original buffer; nothing is applied until Bytes is called.
//
// A Modifier is not safe for concurrent use. Create one per buffer.
type Modifier struct {
	src   []byte
	edits []Edit
}

// NewModifier returns a Modifier over src. src must not change while the
// Modifier is in use.
func NewModifier(src []byte) *Modifier {
	return &Modifier{src: src}
}

// Replace queues a raw byte substitution of length bytes at offset.
func (m *Modifier) Replace(offset, length int, raw []byte) {
	m.edits = append(m.edits, Edit{Offset: offset, Length: length, Replacement: bytes.Clone(raw)})
}

// Insert queues raw bytes to be inserted at offset.
func (m *Modifier) Insert(offset int, raw []byte) {
	m.Replace(offset, 0, raw)
}

// UpdateToken replaces the text token of loc with text, escaped for the
// token's context.
func (m *Modifier) UpdateToken(loc xmlnav.Location, text string) error {
	if !loc.HasText {
		return ErrNoText
	}
	var raw []byte
	if loc.CDATA {
		// "]]>" cannot appear inside a CDATA section; split it across two.
		raw = []byte(strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>"))
	} else {
		raw = EscapeText(text)
	}
	m.Replace(loc.Text.Offset, loc.Text.Length, raw)
	return nil
}

// Edits returns a copy of the queued edits in the order they were issued.
func (m *Modifier) Edits() []Edit {
	return append([]Edit(nil), m.edits...)
}

// Len reports how many edits are queued.
func (m *Modifier) Len() int { return len(m.edits) }

// Bytes materializes the queued edits into a new buffer. Edits must have been
// issued in ascending, non-overlapping order.
func (m *Modifier) Bytes() ([]byte, error) {
	return Apply(m.src, m.edits)
}

// Text is Bytes converted to a string.
func (m *Modifier) Text() (string, error) {
	out, err := m.Bytes()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EscapeText escapes s for use as XML character data.
func EscapeText(s string) []byte {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.Bytes()
}
