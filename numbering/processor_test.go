package numbering

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const importedArticle = `<article xml:id="art_7" GUID="imp_art_7" leos:origin="cn">
    <num leos:editable="false">III</num>
    <heading>Entry into force</heading>
    <paragraph><num>1.</num><content><p>This Regulation shall enter into force &amp; apply.</p></content></paragraph>
</article>`

const importedRecital = "<recital GUID=\"rec_5\">\n\t<num>(5)</num>\n\t<p>Whereas the Union should act.</p>\n</recital>\n"

const nativeBill = `<?xml version="1.0" encoding="UTF-8"?>
<bill>
  <preamble>
    <recitals><recital><num>(1)</num><p>First.</p></recital></recitals>
  </preamble>
  <body>
    <article xml:id="art_1"><num>Article 1</num><heading>Subject</heading></article>
  </body>
</bill>`

// recordingPost counts invocations and returns a fixed result.
type recordingPost struct {
	mu    sync.Mutex
	calls [][]byte
	out   []byte
	err   error
}

func (p *recordingPost) Process(xml []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, bytes.Clone(xml))
	return p.out, p.err
}

func newManual(t *testing.T, post PostProcessor) *Renumberer {
	t.Helper()
	if post == nil {
		post = &recordingPost{}
	}
	r, err := New(Options{Mode: ModeManual}, post)
	require.NoError(t, err)
	return r
}

func TestRenumberImportedArticleStampsPlaceholder(t *testing.T) {
	r := newManual(t, nil)
	out, err := r.RenumberImportedArticle(importedArticle)
	require.NoError(t, err)

	want := strings.Replace(importedArticle, ">III<", ">Article #<", 1)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("unexpected output (-want +got):\n%s", diff)
	}
	// Nested paragraph numbering stays as imported.
	assert.Contains(t, out, "<num>1.</num>")
}

func TestRenumberImportedRecitalStampsPlaceholder(t *testing.T) {
	r := newManual(t, nil)
	out, err := r.RenumberImportedRecital(importedRecital)
	require.NoError(t, err)
	assert.Equal(t, "<recital GUID=\"rec_5\">\n\t<num>(#)</num>\n\t<p>Whereas the Union should act.</p>\n</recital>\n", out)
}

func TestPlaceholderPreservesSurroundingBytes(t *testing.T) {
	r := newManual(t, nil)
	inputs := []struct {
		name string
		xml  string
		old  string
		fn   func(string) (string, error)
		repl string
	}{
		{name: "article", xml: importedArticle, old: "III", fn: r.RenumberImportedArticle, repl: DefaultArticlePlaceholder},
		{name: "recital", xml: importedRecital, old: "(5)", fn: r.RenumberImportedRecital, repl: DefaultRecitalPlaceholder},
	}
	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok, err := xmlnav.LocateFirst([]byte(tt.xml), "num")
			require.NoError(t, err)
			require.True(t, ok)
			off, n := loc.TextSpan()
			require.Equal(t, tt.old, tt.xml[off:off+n])

			out, err := tt.fn(tt.xml)
			require.NoError(t, err)
			assert.Equal(t, tt.xml[:off]+tt.repl+tt.xml[off+n:], out)
			assert.Equal(t, tt.xml[:off], out[:off])
			assert.Equal(t, tt.xml[off+n:], out[off+len(tt.repl):])
		})
	}
}

func TestIdentityWithoutNum(t *testing.T) {
	post := PostProcessorFunc(func(xml []byte) ([]byte, error) { return bytes.Clone(xml), nil })
	r := newManual(t, post)
	inputs := []string{
		`<article GUID="a"><heading>No number yet</heading></article>`,
		`<recital><num/><p>Empty placeholder</p></recital>`,
		`<recital><num><b>x</b></num></recital>`,
	}
	for _, in := range inputs {
		out, err := r.RenumberImportedArticle(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)

		out, err = r.RenumberImportedRecital(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)

		b, err := r.RenumberArticles([]byte(in), "en")
		require.NoError(t, err)
		assert.Equal(t, []byte(in), b)

		b, err = r.RenumberRecitals([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, []byte(in), b)
	}
}

func TestNonBreakingSpaceNumIsStamped(t *testing.T) {
	r := newManual(t, nil)
	out, err := r.RenumberImportedArticle("<article><num>\u00a0</num></article>")
	require.NoError(t, err)
	assert.Equal(t, "<article><num>Article #</num></article>", out)

	out, err = r.RenumberImportedRecital("<recital><num>\u00a0(4)\u00a0</num></recital>")
	require.NoError(t, err)
	assert.Equal(t, "<recital><num>(#)</num></recital>", out)
}

func TestRenumberArticlesManualIsNoOp(t *testing.T) {
	post := &recordingPost{out: []byte("<changed/>")}
	r := newManual(t, post)
	in := []byte(nativeBill)
	out, err := r.RenumberArticles(in, "fr")
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Empty(t, post.calls, "manual articles must not reach the post-processor")

	out[0] = 'X'
	assert.Equal(t, byte('<'), in[0], "result must not alias the input")
}

func TestRenumberRecitalsDelegatesOnce(t *testing.T) {
	post := &recordingPost{out: []byte("<bill>renumbered</bill>")}
	r := newManual(t, post)
	out, err := r.RenumberRecitals([]byte(nativeBill))
	require.NoError(t, err)
	assert.Equal(t, []byte("<bill>renumbered</bill>"), out)
	require.Len(t, post.calls, 1)
	assert.Equal(t, []byte(nativeBill), post.calls[0])
}

func TestPostProcessorErrorPropagatesUnwrapped(t *testing.T) {
	boom := errors.New("post-processing exploded")
	post := &recordingPost{err: boom}
	for _, mode := range Modes {
		r, err := New(Options{Mode: mode}, post)
		require.NoError(t, err)
		_, err = r.RenumberRecitals([]byte(nativeBill))
		assert.Same(t, boom, err)
		assert.False(t, errors.Is(err, ErrNumbering))
	}
}

func TestMalformedFragmentFails(t *testing.T) {
	r := newManual(t, nil)
	tests := []struct {
		name string
		fn   func(string) (string, error)
		op   Op
	}{
		{name: "article", fn: r.RenumberImportedArticle, op: OpRenumberImportedArticle},
		{name: "recital", fn: r.RenumberImportedRecital, op: OpRenumberImportedRecital},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.fn(`<article GUID="art_9"><num>IX</num><p></article>`)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, ErrNumbering)
			assert.ErrorIs(t, err, xmlnav.ErrNavigation)

			var nerr *NumberingError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, tt.op, nerr.Op)
			assert.Equal(t, "article#art_9", nerr.Fragment)
			assert.Contains(t, err.Error(), "unable to renumber imported")
		})
	}
}

func TestAutomaticMode(t *testing.T) {
	post := &recordingPost{out: []byte("<bill>auto</bill>")}
	r, err := New(Options{Mode: ModeAutomatic}, post)
	require.NoError(t, err)
	assert.Equal(t, ModeAutomatic, r.Mode())

	out, err := r.RenumberArticles([]byte(nativeBill), "en")
	require.NoError(t, err)
	assert.Equal(t, []byte("<bill>auto</bill>"), out)

	s, err := r.RenumberImportedArticle(importedArticle)
	require.NoError(t, err)
	assert.Equal(t, importedArticle, s)

	s, err = r.RenumberImportedRecital(importedRecital)
	require.NoError(t, err)
	assert.Equal(t, importedRecital, s)

	// Automatic imports are not inspected, so malformed input passes through.
	s, err = r.RenumberImportedRecital("<recital>")
	require.NoError(t, err)
	assert.Equal(t, "<recital>", s)

	assert.Len(t, post.calls, 1)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	r, err := New(Options{
		Mode:               ModeManual,
		ArticlePlaceholder: "Art. ?",
		RecitalPlaceholder: "[?]",
		NumTag:             "number",
		Axis:               xmlnav.AxisChild,
	}, &recordingPost{})
	require.NoError(t, err)

	out, err := r.RenumberImportedArticle(`<article><p><number>x</number></p><number>4</number></article>`)
	require.NoError(t, err)
	assert.Equal(t, `<article><p><number>x</number></p><number>Art. ?</number></article>`, out)

	out, err = r.RenumberImportedRecital(`<recital><number>(2)</number></recital>`)
	require.NoError(t, err)
	assert.Equal(t, `<recital><number>[?]</number></recital>`, out)
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	_, err := New(Options{}, &recordingPost{})
	assert.Error(t, err)
	_, err = New(Options{Mode: Mode(42)}, &recordingPost{})
	assert.Error(t, err)
	_, err = New(Options{Mode: ModeManual}, nil)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"manual": ModeManual, " Automatic ": ModeAutomatic, "auto": ModeAutomatic} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("semi")
	assert.Error(t, err)
	assert.Equal(t, "manual", ModeManual.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r, err := New(Options{Mode: ModeManual, Logger: zap.New(core)}, &recordingPost{})
	require.NoError(t, err)

	_, err = r.RenumberImportedArticle("<article><num>I</num>")
	require.Error(t, err)

	warns := logs.FilterMessage("renumbering failed").All()
	require.Len(t, warns, 1)
	assert.Equal(t, "renumberImportedArticle", warns[0].ContextMap()["op"])
	assert.Equal(t, "manual", warns[0].ContextMap()["mode"])
}

func TestSharedRenumbererIsConcurrencySafe(t *testing.T) {
	r := newManual(t, PostProcessorFunc(func(xml []byte) ([]byte, error) { return bytes.Clone(xml), nil }))
	want, err := r.RenumberImportedArticle(importedArticle)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := r.RenumberImportedArticle(importedArticle)
				if err != nil {
					errs <- err
					return
				}
				if got != want {
					errs <- errors.New("result differs between goroutines")
					return
				}
				if _, err := r.RenumberImportedRecital(importedRecital); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func BenchmarkRenumberImportedArticle(b *testing.B) {
	r, err := New(Options{Mode: ModeManual}, &recordingPost{})
	if err != nil {
		b.Fatalf("new: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.RenumberImportedArticle(importedArticle); err != nil {
			b.Fatal(err)
		}
	}
}
