// Package numbering renumbers structural elements (articles, recitals) of
// Akoma Ntoso documents and imported fragments. Behavior depends on the
// editing context's Mode: manual contexts only stamp placeholders on imported
// content, automatic contexts hand whole documents to a PostProcessor.
package numbering

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atlas-foundry/akn-numbering-go-sdk/xmledit"
	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

const (
	DefaultArticlePlaceholder = "Article #"
	DefaultRecitalPlaceholder = "(#)"
	DefaultNumTag             = "num"
)

// Processor is the renumbering capability offered to callers. The XML form of
// each method's output matches its input: bytes in, bytes out; text in, text
// out.
type Processor interface {
	RenumberArticles(xml []byte, language string) ([]byte, error)
	RenumberImportedArticle(xml string) (string, error)
	RenumberRecitals(xml []byte) ([]byte, error)
	RenumberImportedRecital(xml string) (string, error)
}

// PostProcessor performs full-document automatic numbering. It is treated as
// opaque: its output is returned verbatim and its errors are not wrapped.
type PostProcessor interface {
	Process(xml []byte) ([]byte, error)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(xml []byte) ([]byte, error)

func (f PostProcessorFunc) Process(xml []byte) ([]byte, error) { return f(xml) }

// Mode selects the renumbering variant.
type Mode int

const (
	// ModeManual keeps native numbering and stamps placeholders on imported fragments.
	ModeManual Mode = iota + 1
	// ModeAutomatic delegates documents to the PostProcessor and leaves imported fragments alone.
	ModeAutomatic
)

// Modes lists every valid Mode.
var Modes = []Mode{ModeManual, ModeAutomatic}

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutomatic:
		return "automatic"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool { return m == ModeManual || m == ModeAutomatic }

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return ModeManual, nil
	case "automatic", "auto":
		return ModeAutomatic, nil
	}
	return 0, fmt.Errorf("unknown numbering mode %q", s)
}

// Options configures a Renumberer. Zero values select the defaults.
type Options struct {
	Mode               Mode
	ArticlePlaceholder string
	RecitalPlaceholder string
	NumTag             string
	Axis               xmlnav.Axis
	Logger             *zap.Logger
}

// Renumberer implements Processor for one Mode. It holds no per-call state and
// is safe for concurrent use.
type Renumberer struct {
	mode               Mode
	post               PostProcessor
	articlePlaceholder string
	recitalPlaceholder string
	numTag             string
	nav                xmlnav.Options
	log                *zap.Logger
}

var _ Processor = (*Renumberer)(nil)

// New builds a Renumberer. post is required by both modes.
func New(opts Options, post PostProcessor) (*Renumberer, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("numbering: invalid mode %s", opts.Mode)
	}
	if post == nil {
		return nil, errors.New("numbering: post-processor is nil")
	}
	r := &Renumberer{
		mode:               opts.Mode,
		post:               post,
		articlePlaceholder: orDefault(opts.ArticlePlaceholder, DefaultArticlePlaceholder),
		recitalPlaceholder: orDefault(opts.RecitalPlaceholder, DefaultRecitalPlaceholder),
		numTag:             orDefault(opts.NumTag, DefaultNumTag),
		nav:                xmlnav.Options{Axis: opts.Axis},
		log:                opts.Logger,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	r.log = r.log.With(zap.Stringer("mode", r.mode))
	return r, nil
}

// Mode returns the variant r was built with.
func (r *Renumberer) Mode() Mode { return r.mode }

// RenumberArticles leaves native articles alone in manual mode; the next
// automatic pass numbers them. language is reserved for variants that format
// numbers per language.
func (r *Renumberer) RenumberArticles(xml []byte, language string) ([]byte, error) {
	r.log.Debug("renumber articles", zap.String("language", language), zap.Int("bytes", len(xml)))
	switch r.mode {
	case ModeManual:
		return bytes.Clone(xml), nil
	case ModeAutomatic:
		return r.post.Process(xml)
	}
	panic("numbering: unhandled mode " + r.mode.String())
}

// RenumberImportedArticle replaces the text of the first num element with
// the article placeholder in manual mode.
func (r *Renumberer) RenumberImportedArticle(xml string) (string, error) {
	switch r.mode {
	case ModeManual:
		return r.stampPlaceholder(OpRenumberImportedArticle, xml, r.articlePlaceholder)
	case ModeAutomatic:
		return xml, nil
	}
	panic("numbering: unhandled mode " + r.mode.String())
}

// RenumberRecitals returns the post-processor's output for xml.
func (r *Renumberer) RenumberRecitals(xml []byte) ([]byte, error) {
	r.log.Debug("renumber recitals", zap.Int("bytes", len(xml)))
	return r.post.Process(xml)
}

// RenumberImportedRecital replaces the text of the first num element with
// the recital placeholder in manual mode.
func (r *Renumberer) RenumberImportedRecital(xml string) (string, error) {
	switch r.mode {
	case ModeManual:
		return r.stampPlaceholder(OpRenumberImportedRecital, xml, r.recitalPlaceholder)
	case ModeAutomatic:
		return xml, nil
	}
	panic("numbering: unhandled mode " + r.mode.String())
}

// stampPlaceholder rewrites the first num text of xml. A missing num element,
// or one without text, leaves xml unchanged.
func (r *Renumberer) stampPlaceholder(op Op, xml, placeholder string) (string, error) {
	buf := []byte(xml)
	r.log.Debug("stamp placeholder", zap.Stringer("op", op), zap.Int("bytes", len(buf)))
	loc, ok, err := xmlnav.Locate(buf, r.numTag, r.nav)
	if err != nil {
		return "", r.fail(op, buf, err)
	}
	if !ok || !loc.HasText {
		r.log.Debug("no num text, fragment unchanged", zap.Stringer("op", op))
		return xml, nil
	}
	m := xmledit.NewModifier(buf)
	if err := m.UpdateToken(loc, placeholder); err != nil {
		return "", r.fail(op, buf, err)
	}
	out, err := m.Text()
	if err != nil {
		return "", r.fail(op, buf, err)
	}
	return out, nil
}

func (r *Renumberer) fail(op Op, buf []byte, err error) error {
	nerr := &NumberingError{Op: op, Fragment: xmlnav.RootIdentity(buf), Err: err}
	r.log.Warn("renumbering failed", zap.Stringer("op", op), zap.String("fragment", nerr.Fragment), zap.Error(err))
	return nerr
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
