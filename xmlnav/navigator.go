// Package xmlnav locates elements inside a serialized XML buffer with a
// forward-only cursor and reports the raw byte span of their text content,
// so callers can edit the buffer in place without rebuilding a tree.
package xmlnav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Axis selects which elements below the root a query may match.
type Axis int

const (
	// AxisDescendant matches any element below the root, in document order.
	AxisDescendant Axis = iota
	// AxisChild matches direct children of the root element only.
	AxisChild
	// AxisDescendantOrSelf is AxisDescendant plus the root element itself.
	AxisDescendantOrSelf
)

func (a Axis) String() string {
	switch a {
	case AxisChild:
		return "child"
	case AxisDescendantOrSelf:
		return "descendant-or-self"
	}
	return "descendant"
}

// ParseAxis maps a configuration value to an Axis. Empty selects AxisDescendant.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "descendant":
		return AxisDescendant, nil
	case "child":
		return AxisChild, nil
	case "descendant-or-self":
		return AxisDescendantOrSelf, nil
	}
	return AxisDescendant, fmt.Errorf("unknown axis %q", s)
}

func (a Axis) admits(depth int) bool {
	switch a {
	case AxisChild:
		return depth == 1
	case AxisDescendantOrSelf:
		return true
	}
	return depth >= 1
}

// Options controls a navigation query.
type Options struct {
	Axis Axis
}

// Span is a half-open byte range [Offset, Offset+Length) of the source buffer.
type Span struct {
	Offset int
	Length int
}

// End returns the offset just past the span.
func (s Span) End() int { return s.Offset + s.Length }

// Location describes one matched element. Offsets refer to the buffer passed
// to the query and are only meaningful for that buffer.
type Location struct {
	Name  string // local name
	Start int    // offset of the start tag's '<'
	End   int    // offset just past the end tag (or the self-closing tag)
	Depth int    // 0 for the root element

	// Text is the first direct, non-whitespace text token of the element.
	// CDATA markers are excluded; entity references are kept raw.
	Text    Span
	HasText bool
	CDATA   bool // Text lies inside a CDATA section
}

// TextSpan returns the byte offset and length of the element's text content.
// Both are zero when HasText is false.
func (l Location) TextSpan() (offset, length int) {
	return l.Text.Offset, l.Text.Length
}

// LocateFirst returns the first element named tag below the root, in
// depth-first document order. A missing element is reported with ok == false
// and a nil error.
func LocateFirst(buf []byte, tag string) (Location, bool, error) {
	return Locate(buf, tag, Options{})
}

// LocateFirstChild is LocateFirst restricted to direct children of the root.
func LocateFirstChild(buf []byte, tag string) (Location, bool, error) {
	return Locate(buf, tag, Options{Axis: AxisChild})
}

// Locate returns the first element named tag admitted by opts.Axis.
// The whole buffer is still read so a malformed tail fails the query.
func Locate(buf []byte, tag string, opts Options) (Location, bool, error) {
	locs, err := newCursor(buf).scan(tag, opts, 1)
	if err != nil || len(locs) == 0 {
		return Location{}, false, err
	}
	return locs[0], true, nil
}

// LocateAll returns every element named tag admitted by opts.Axis, ordered by
// start offset.
func LocateAll(buf []byte, tag string, opts Options) ([]Location, error) {
	return newCursor(buf).scan(tag, opts, 0)
}

var (
	cdataOpen  = []byte("<![CDATA[")
	cdataClose = []byte("]]>")
	utf8BOM    = []byte("\xEF\xBB\xBF")
)

// xmlSpace is the XML whitespace set; NBSP and NEL are text.
const xmlSpace = " \t\r\n"

var errUnsupportedCharset = errors.New("only UTF-8 input is supported")

// cursor is a single-use, forward-only reader over one buffer.
type cursor struct {
	buf        []byte
	dec        *xml.Decoder
	badCharset string
}

type frame struct {
	loc   Location
	match bool
}

func newCursor(buf []byte) *cursor {
	c := &cursor{buf: buf}
	c.dec = xml.NewDecoder(bytes.NewReader(buf))
	c.dec.Strict = true
	c.dec.CharsetReader = func(label string, r io.Reader) (io.Reader, error) {
		// ASCII is a subset of UTF-8, so offsets stay valid.
		switch strings.ToLower(label) {
		case "us-ascii", "ascii":
			return r, nil
		}
		c.badCharset = label
		return nil, errUnsupportedCharset
	}
	return c
}

// next returns the next token and the raw byte range it was read from.
func (c *cursor) next() (xml.Token, Span, error) {
	start := int(c.dec.InputOffset())
	tok, err := c.dec.Token()
	if err != nil {
		return nil, Span{Offset: start}, err
	}
	return tok, Span{Offset: start, Length: int(c.dec.InputOffset()) - start}, nil
}

// scan reads the buffer once. limit bounds how many elements may start a
// match; 0 means no bound.
func (c *cursor) scan(tag string, opts Options, limit int) ([]Location, error) {
	var (
		stack   []frame
		found   []Location
		started int
		roots   int
	)
	for {
		tok, raw, err := c.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapXMLError(err, raw.Offset, c.badCharset)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth := len(stack)
			if depth == 0 {
				roots++
				if roots > 1 {
					return nil, &Error{Type: ErrMalformed, Message: "multiple root elements", Offset: raw.Offset}
				}
			}
			match := t.Name.Local == tag && opts.Axis.admits(depth) && (limit == 0 || started < limit)
			if match {
				started++
			}
			stack = append(stack, frame{
				loc:   Location{Name: t.Name.Local, Start: raw.Offset, Depth: depth},
				match: match,
			})
		case xml.CharData:
			if len(stack) == 0 {
				if !c.ignorable(t, raw) {
					return nil, &Error{Type: ErrMalformed, Message: "character data outside root element", Offset: raw.Offset}
				}
				continue
			}
			top := &stack[len(stack)-1]
			if top.match && !top.loc.HasText {
				if span, cdata, ok := c.textSpan(t, raw); ok {
					top.loc.Text = span
					top.loc.HasText = true
					top.loc.CDATA = cdata
				}
			}
		case xml.EndElement:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.match {
				top.loc.End = raw.End()
				found = append(found, top.loc)
			}
		}
	}
	if roots == 0 {
		return nil, &Error{Type: ErrEmpty, Message: "no root element", Offset: len(c.buf)}
	}
	// Matches are collected as they close; report them by start.
	sort.Slice(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found, nil
}

// ignorable reports whether top-level character data is whitespace or a
// leading byte order mark.
func (c *cursor) ignorable(cd xml.CharData, raw Span) bool {
	text := []byte(cd)
	if raw.Offset == 0 {
		text = bytes.TrimPrefix(text, utf8BOM)
	}
	return len(bytes.Trim(text, xmlSpace)) == 0
}

func (c *cursor) textSpan(cd xml.CharData, raw Span) (span Span, cdata, ok bool) {
	if len(bytes.Trim(cd, xmlSpace)) == 0 {
		return Span{}, false, false
	}
	b := c.buf[raw.Offset:raw.End()]
	if bytes.HasPrefix(b, cdataOpen) && bytes.HasSuffix(b, cdataClose) {
		return Span{Offset: raw.Offset + len(cdataOpen), Length: raw.Length - len(cdataOpen) - len(cdataClose)}, true, true
	}
	return raw, false, true
}

// identityAttrs are checked in order; "id" also covers xml:id.
var identityAttrs = []string{"id", "GUID", "eId"}

// RootIdentity describes the root element as "name#id" for diagnostics, or
// just "name" when it carries no identifier. It never fails: input whose root
// cannot be read yields "".
func RootIdentity(buf []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(buf))
	dec.Strict = false
	for {
		tok, err := dec.RawToken()
		if err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, key := range identityAttrs {
			for _, attr := range start.Attr {
				if attr.Name.Local == key && attr.Value != "" {
					return start.Name.Local + "#" + attr.Value
				}
			}
		}
		return start.Name.Local
	}
}
