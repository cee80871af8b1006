package parser

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/doilink/internal/config"
	ourdocx "github.com/dgallion1/doilink/internal/docx"
	"github.com/dgallion1/doilink/internal/docx/docxtest"
	"github.com/dgallion1/doilink/internal/linker"
	"github.com/dgallion1/doilink/internal/report"
)

func TestSummarize_Fixture(t *testing.T) {
	data := docxtest.Build(
		docxtest.P(docxtest.R("First paragraph.")),
		docxtest.P(docxtest.R("Second "), docxtest.Styled("<w:b/>", "paragraph.")),
	)
	s, err := Summarize(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Paragraphs != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", s.Paragraphs)
	}
	want := []string{"First paragraph.", "Second paragraph."}
	for i, w := range want {
		if s.Texts[i] != w {
			t.Errorf("paragraph %d: expected %q, got %q", i, w, s.Texts[i])
		}
	}
}

func TestSummarize_NotADocx(t *testing.T) {
	if _, err := Summarize(strings.NewReader("plain text"), 10); err == nil {
		t.Error("expected error for non-docx input")
	}
}

// A document written by go-docx goes through the linker and is read back by
// go-docx again.
func TestInterop_GoDocxDocumentIsLinked(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("References")
	w.AddParagraph().AddText("[1] Smith, J. DOI:10.1234/abcd")
	var src bytes.Buffer
	if _, err := w.WriteTo(&src); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	pkg, err := ourdocx.Read(bytes.NewReader(src.Bytes()), int64(src.Len()))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	paras := pkg.Document().Paragraphs()

	l, err := linker.New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := l.Process(pkg.Document(), report.NewPrinter(io.Discard))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Linked != 1 {
		t.Fatalf("expected 1 linked reference, got %+v", res)
	}

	var out bytes.Buffer
	if _, err := pkg.WriteTo(&out); err != nil {
		t.Fatalf("write output: %v", err)
	}
	s, err := Summarize(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("go-docx could not read output: %v", err)
	}
	if s.Paragraphs != len(paras) {
		t.Errorf("expected %d paragraphs, got %d", len(paras), s.Paragraphs)
	}
	found := false
	for _, text := range s.Texts {
		if strings.HasPrefix(text, "[1] Smith, J. (") {
			found = true
		}
		if strings.Contains(text, "DOI:") {
			t.Errorf("expected DOI token to be gone, got %q", text)
		}
	}
	if !found {
		t.Errorf("linked paragraph not found in %q", s.Texts)
	}
}
