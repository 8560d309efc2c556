package xmledit

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

const recitalSample = "<recital GUID=\"rec_5\">\r\n\t<num class='x'  >(5)</num>\n<p>Whereas &amp; <!-- keep -->...</p>\n</recital>"

func TestApplyNoEditsCopiesInput(t *testing.T) {
	src := []byte(recitalSample)
	out, err := Apply(src, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("output differs from input")
	}
	out[0] = 'X'
	if src[0] != '<' {
		t.Fatalf("output aliases input")
	}
}

func TestApplySplicesAndPreservesSurroundings(t *testing.T) {
	src := []byte(recitalSample)
	off := bytes.Index(src, []byte("(5)"))
	edits := []Edit{{Offset: off, Length: 3, Replacement: []byte("(#)")}}
	out, err := Apply(src, edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := append(append(append([]byte(nil), src[:off]...), "(#)"...), src[off+3:]...)
	if !bytes.Equal(out, want) {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", out, want)
	}
	if !bytes.Equal(out[:off], src[:off]) || !bytes.Equal(out[off+3:], src[off+3:]) {
		t.Fatalf("bytes outside the edit changed")
	}
}

func TestApplyMultipleEdits(t *testing.T) {
	src := []byte("0123456789")
	out, err := Apply(src, []Edit{
		{Offset: 0, Length: 0, Replacement: []byte("<")},
		{Offset: 0, Length: 2, Replacement: []byte("ab")},
		{Offset: 4, Length: 3, Replacement: nil},
		{Offset: 10, Length: 0, Replacement: []byte(">")},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(out) != "<ab23789>" {
		t.Fatalf("got %q", out)
	}
}

func TestApplyRejectsInvalidEditSets(t *testing.T) {
	src := []byte("0123456789")
	tests := []struct {
		name  string
		edits []Edit
		index int
	}{
		{name: "overlapping", edits: []Edit{{Offset: 2, Length: 4}, {Offset: 4, Length: 2}}, index: 1},
		{name: "same offset replacements", edits: []Edit{{Offset: 3, Length: 1}, {Offset: 3, Length: 1}}, index: 1},
		{name: "unsorted", edits: []Edit{{Offset: 6, Length: 1}, {Offset: 1, Length: 1}}, index: 1},
		{name: "past end", edits: []Edit{{Offset: 8, Length: 3}}, index: 0},
		{name: "negative", edits: []Edit{{Offset: -1, Length: 1}}, index: 0},
		{name: "length overflows end", edits: []Edit{{Offset: 2, Length: math.MaxInt}}, index: 0},
		{name: "offset past end", edits: []Edit{{Offset: 11}}, index: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.edits)
			if !errors.Is(err, ErrInvalidEditSet) {
				t.Fatalf("expected ErrInvalidEditSet, got %v", err)
			}
			if out != nil {
				t.Fatalf("no partial output expected")
			}
			var ie *InvalidEditSetError
			if !errors.As(err, &ie) || ie.Index != tt.index {
				t.Fatalf("expected failing index %d, got %+v", tt.index, ie)
			}
		})
	}
}

func TestModifierUpdateToken(t *testing.T) {
	src := []byte(recitalSample)
	loc, ok, err := xmlnav.LocateFirst(src, "num")
	if err != nil || !ok {
		t.Fatalf("locate: ok=%v err=%v", ok, err)
	}
	m := NewModifier(src)
	if err := m.UpdateToken(loc, "(#)"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one edit, got %d", m.Len())
	}
	out, err := m.Text()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	want := "<recital GUID=\"rec_5\">\r\n\t<num class='x'  >(#)</num>\n<p>Whereas &amp; <!-- keep -->...</p>\n</recital>"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
	if !bytes.Equal(src, []byte(recitalSample)) {
		t.Fatalf("source buffer mutated")
	}
}

func TestModifierEscapesText(t *testing.T) {
	src := []byte(`<a><num>1</num><cd><num><![CDATA[2]]></num></cd></a>`)
	locs, err := xmlnav.LocateAll(src, "num", xmlnav.Options{})
	if err != nil || len(locs) != 2 {
		t.Fatalf("locate all: %v %d", err, len(locs))
	}
	m := NewModifier(src)
	if err := m.UpdateToken(locs[0], "A & <B>"); err != nil {
		t.Fatalf("update text: %v", err)
	}
	if err := m.UpdateToken(locs[1], "x]]>y"); err != nil {
		t.Fatalf("update cdata: %v", err)
	}
	out, err := m.Text()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	want := `<a><num>A &amp; &lt;B&gt;</num><cd><num><![CDATA[x]]]]><![CDATA[>y]]></num></cd></a>`
	if out != want {
		t.Fatalf("got %s", out)
	}
	if _, _, err := xmlnav.LocateFirst([]byte(out), "num"); err != nil {
		t.Fatalf("edited output must stay well-formed: %v", err)
	}
}

func TestModifierUpdateTokenWithoutText(t *testing.T) {
	src := []byte(`<a><num/></a>`)
	loc, ok, err := xmlnav.LocateFirst(src, "num")
	if err != nil || !ok {
		t.Fatalf("locate: ok=%v err=%v", ok, err)
	}
	m := NewModifier(src)
	if err := m.UpdateToken(loc, "x"); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("failed update must not queue an edit")
	}
}

func TestModifierRejectsOutOfOrderEdits(t *testing.T) {
	m := NewModifier([]byte("abcdef"))
	m.Replace(4, 1, []byte("E"))
	m.Insert(1, []byte("+"))
	if _, err := m.Bytes(); !errors.Is(err, ErrInvalidEditSet) {
		t.Fatalf("expected ErrInvalidEditSet, got %v", err)
	}
	edits := m.Edits()
	edits[0].Offset = 0
	if m.Edits()[0].Offset != 4 {
		t.Fatalf("Edits must return a copy")
	}
}

func BenchmarkApplySingleEdit(b *testing.B) {
	src := bytes.Repeat([]byte("<recital><num>(5)</num><p>Whereas ...</p></recital>\n"), 2000)
	edits := []Edit{{Offset: 14, Length: 3, Replacement: []byte("(#)")}}
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Apply(src, edits); err != nil {
			b.Fatal(err)
		}
	}
}
