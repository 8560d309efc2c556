package fragment

import (
	"bytes"
	"errors"
	"strings"

	goorg "github.com/niklasfasching/go-org/org"
	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	mdtext "github.com/yuin/goldmark/text"
)

// ErrNotImplemented signals an unsupported text format.
var ErrNotImplemented = errors.New("text format not implemented")

// TextFormat enumerates the text sources a fragment can be imported from.
type TextFormat string

const (
	FormatMarkdown TextFormat = "markdown"
	FormatOrg      TextFormat = "org"
)

// FromText converts a text document into a fragment of the given kind.
// The first heading becomes the num, the second the article heading, and
// every paragraph a body paragraph. A recital's second heading is kept as a
// paragraph since recitals have no heading element.
func FromText(body string, format TextFormat, kind Kind, id string) (string, error) {
	var (
		headings, paras []string
		err             error
	)
	switch format {
	case FormatMarkdown:
		headings, paras = splitMarkdown(body)
	case FormatOrg:
		headings, paras, err = splitOrg(body)
	default:
		return "", ErrNotImplemented
	}
	if err != nil {
		return "", err
	}

	b := New(kind, id)
	if len(headings) > 0 {
		b.Num(headings[0])
	}
	rest := headings
	if len(rest) > 0 {
		rest = rest[1:]
	}
	if len(rest) > 0 && kind == KindArticle {
		b.Heading(rest[0])
		rest = rest[1:]
	}
	for _, h := range rest {
		b.Paragraph(h)
	}
	for _, p := range paras {
		b.Paragraph(p)
	}
	return b.Build()
}

func splitMarkdown(body string) (headings, paras []string) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	src := []byte(body)
	root := md.Parser().Parse(mdtext.NewReader(src))
	_ = mdast.Walk(root, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *mdast.Heading:
			if text := extractText(node, src); text != "" {
				headings = append(headings, text)
			}
			return mdast.WalkSkipChildren, nil
		case *mdast.Paragraph:
			if text := extractText(node, src); text != "" {
				paras = append(paras, text)
			}
			return mdast.WalkSkipChildren, nil
		}
		return mdast.WalkContinue, nil
	})
	return headings, paras
}

// splitOrg normalizes the input through go-org, then reads headlines
// ("* ...") and blank-line separated paragraphs from the result.
func splitOrg(body string) (headings, paras []string, err error) {
	o := goorg.New().Parse(strings.NewReader(body), "")
	out, err := o.Write(goorg.NewOrgWriter())
	if err != nil {
		return nil, nil, err
	}
	var current []string
	flush := func() {
		if len(current) > 0 {
			paras = append(paras, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case isHeadline(line):
			flush()
			if h := strings.TrimSpace(strings.TrimLeft(line, "*")); h != "" {
				headings = append(headings, h)
			}
		default:
			current = append(current, line)
		}
	}
	flush()
	return headings, paras, nil
}

func isHeadline(line string) bool {
	return strings.HasPrefix(line, "*") && strings.HasPrefix(strings.TrimLeft(line, "*"), " ")
}

func extractText(n mdast.Node, src []byte) string {
	var b bytes.Buffer
	_ = mdast.Walk(n, func(nn mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		if tn, ok := nn.(*mdast.Text); ok {
			b.Write(tn.Segment.Value(src))
			if tn.SoftLineBreak() {
				b.WriteByte(' ')
			}
		}
		return mdast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
