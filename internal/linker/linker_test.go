package linker

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dgallion1/doilink/internal/config"
	"github.com/dgallion1/doilink/internal/docx"
	"github.com/dgallion1/doilink/internal/docx/docxtest"
)

type recorder struct {
	before, after []string
	skipped       []string
}

func (r *recorder) Before(p []string) { r.before = p }
func (r *recorder) Skip(p string)     { r.skipped = append(r.skipped, p) }
func (r *recorder) After(p []string)  { r.after = p }

func newLinker(t *testing.T) *Linker {
	t.Helper()
	l, err := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return l
}

func load(t *testing.T, data []byte) *docx.Package {
	t.Helper()
	pkg, err := docx.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return pkg
}

func reload(t *testing.T, pkg *docx.Package) *docx.Package {
	t.Helper()
	var buf bytes.Buffer
	if _, err := pkg.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	return load(t, buf.Bytes())
}

func TestProcess_SingleRunReference(t *testing.T) {
	pkg := load(t, docxtest.Build(docxtest.P(docxtest.R("[1] Smith, J. DOI:10.1234/abcd"))))
	rec := &recorder{}

	res, err := newLinker(t).Process(pkg.Document(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates != 1 || res.Linked != 1 || res.Skipped != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	para := reload(t, pkg).Document().Paragraphs()[0]
	if got := para.Text(); got != "[1] Smith, J. (link)" {
		t.Errorf("expected %q, got %q", "[1] Smith, J. (link)", got)
	}
	links := para.Hyperlinks()
	if len(links) != 1 {
		t.Fatalf("expected 1 hyperlink, got %d", len(links))
	}
	if got := links[0].Target(); got != "https://dx.doi.org/10.1234/abcd" {
		t.Errorf("expected target %q, got %q", "https://dx.doi.org/10.1234/abcd", got)
	}
	if len(rec.before) != 1 || rec.before[0] != "[1] Smith, J. DOI:10.1234/abcd" {
		t.Errorf("unexpected before dump: %q", rec.before)
	}
	if len(rec.after) != 1 || rec.after[0] != "[1] Smith, J. (link)" {
		t.Errorf("unexpected after dump: %q", rec.after)
	}
}

func TestLink_ParagraphOrderAndFormatting(t *testing.T) {
	rPr := `<w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman"/><w:b/><w:color w:val="1F4E79" w:themeColor="accent1"/><w:sz w:val="20"/>`
	pkg := load(t, docxtest.Build(docxtest.P(
		docxtest.R("[2] Doe, A. "),
		docxtest.Styled(rPr, "Title. DOI: 10.5555/xyz "),
		docxtest.Styled("<w:i/>", " [online]"),
	)))
	doc := pkg.Document()
	para := doc.Paragraphs()[0]
	original := para.Runs()[1].Style()

	loc, err := Locate(para, "DOI:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Offset != len("Title. ") {
		t.Errorf("expected offset %d, got %d", len("Title. "), loc.Offset)
	}
	target, err := Link(doc, para, loc, config.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != "https://dx.doi.org/10.5555/xyz" {
		t.Errorf("expected trimmed DOI in target, got %q", target)
	}

	para = reload(t, pkg).Document().Paragraphs()[0]
	if got := para.Text(); got != "[2] Doe, A. Title. (link) [online]" {
		t.Errorf("unexpected text %q", got)
	}

	content := para.Content()
	if len(content) != 5 {
		t.Fatalf("expected 5 inline children, got %d", len(content))
	}
	wantText := []string{"[2] Doe, A. ", "Title. (", "link", ")", " [online]"}
	for i, in := range content {
		if in.Text() != wantText[i] {
			t.Errorf("child %d: expected %q, got %q", i, wantText[i], in.Text())
		}
	}

	prefix, ok := content[1].(*docx.Run)
	if !ok {
		t.Fatalf("expected run at position 1, got %T", content[1])
	}
	if prefix.Style() != original {
		t.Errorf("prefix run formatting changed: %+v", prefix.Style())
	}

	link, ok := content[2].(*docx.Hyperlink)
	if !ok {
		t.Fatalf("expected hyperlink at position 2, got %T", content[2])
	}
	runs := link.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected hyperlink to wrap 1 run, got %d", len(runs))
	}
	wantLink := original
	wantLink.Color = "0563C1"
	wantLink.ThemeColor = ""
	wantLink.Underline = "single"
	if got := runs[0].Style(); got != wantLink {
		t.Errorf("link run style:\nwant %+v\ngot  %+v", wantLink, got)
	}

	closing, ok := content[3].(*docx.Run)
	if !ok {
		t.Fatalf("expected run at position 3, got %T", content[3])
	}
	if closing.Style() != original {
		t.Errorf("closing run style:\nwant %+v\ngot  %+v", original, closing.Style())
	}
}

func TestProcess_PrefixSplitAcrossRunsIsSkipped(t *testing.T) {
	pkg := load(t, docxtest.Build(
		docxtest.P(docxtest.R("[1] Smith, J. DO"), docxtest.R("I:10.1234")),
		docxtest.P(docxtest.R("[2] Roe, B. DOI:10.1/two")),
	))
	before := pkg.Document().Paragraphs()[0].XML()
	rec := &recorder{}

	res, err := newLinker(t).Process(pkg.Document(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates != 2 || res.Linked != 1 || res.Skipped != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(rec.skipped) != 1 || rec.skipped[0] != "[1] Smith, J. DOI:10.1234" {
		t.Errorf("unexpected skips: %q", rec.skipped)
	}

	paras := reload(t, pkg).Document().Paragraphs()
	if got := paras[0].XML(); got != before {
		t.Errorf("skipped paragraph changed:\nbefore %s\nafter  %s", before, got)
	}
	if got := paras[1].Text(); got != "[2] Roe, B. (link)" {
		t.Errorf("expected second reference linked, got %q", got)
	}
}

func TestLocate_NotFound(t *testing.T) {
	pkg := load(t, docxtest.Build(docxtest.P(docxtest.R("[1] DO"), docxtest.R("I:1"))))
	_, err := Locate(pkg.Document().Paragraphs()[0], "DOI:")
	if !errors.Is(err, ErrPrefixNotFound) {
		t.Errorf("expected ErrPrefixNotFound, got %v", err)
	}
}

func TestProcess_NonMatchingParagraphsUntouched(t *testing.T) {
	pkg := load(t, docxtest.Build(
		docxtest.P(docxtest.Styled("<w:b/>", "References")),
		docxtest.P(docxtest.R("See [1] DOI:10.1/not-at-start")),
		docxtest.P(docxtest.R("[1] Smith, J. DOI:10.1234/abcd")),
		docxtest.P(docxtest.R("[x] Not numbered DOI:10.1/x")),
		docxtest.P(docxtest.R("[2] No identifier here.")),
	))
	var before []string
	for _, p := range pkg.Document().Paragraphs() {
		before = append(before, p.XML())
	}

	res, err := newLinker(t).Process(pkg.Document(), &recorder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates != 1 {
		t.Errorf("expected 1 candidate, got %d", res.Candidates)
	}

	after := reload(t, pkg).Document().Paragraphs()
	for _, i := range []int{0, 1, 3, 4} {
		if after[i].XML() != before[i] {
			t.Errorf("paragraph %d changed:\nbefore %s\nafter  %s", i, before[i], after[i].XML())
		}
	}
	if after[2].XML() == before[2] {
		t.Error("expected matching paragraph to change")
	}
}

func TestProcess_SecondPassMakesNoChanges(t *testing.T) {
	pkg := load(t, docxtest.Build(
		docxtest.P(docxtest.R("[1] Smith, J. DOI:10.1234/abcd")),
		docxtest.P(docxtest.R("[2] Roe, B. DOI:10.1/two")),
	))
	if _, err := newLinker(t).Process(pkg.Document(), &recorder{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	once := reload(t, pkg)
	var before []string
	for _, p := range once.Document().Paragraphs() {
		before = append(before, p.XML())
	}
	rels := len(once.Document().Relationships().All())

	res, err := newLinker(t).Process(once.Document(), &recorder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates != 0 || res.Linked != 0 || res.Skipped != 0 {
		t.Errorf("expected no work on second pass, got %+v", res)
	}
	for i, p := range reload(t, once).Document().Paragraphs() {
		if p.XML() != before[i] {
			t.Errorf("paragraph %d changed on second pass", i)
		}
	}
	if got := len(once.Document().Relationships().All()); got != rels {
		t.Errorf("expected %d relationships, got %d", rels, got)
	}
}

func TestProcess_TargetsInDocumentOrder(t *testing.T) {
	pkg := load(t, docxtest.Build(
		docxtest.P(docxtest.R("[1] A. DOI:10.1/a")),
		docxtest.P(docxtest.R("Body text.")),
		docxtest.P(docxtest.R("[2] B. DOI:10.1/b")),
		docxtest.P(docxtest.R("[3] C. DOI:10.1/a")),
	))
	res, err := newLinker(t).Process(pkg.Document(), &recorder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://dx.doi.org/10.1/a", "https://dx.doi.org/10.1/b", "https://dx.doi.org/10.1/a"}
	if len(res.Targets) != len(want) {
		t.Fatalf("expected %d targets, got %d", len(want), len(res.Targets))
	}
	for i := range want {
		if res.Targets[i] != want[i] {
			t.Errorf("target %d: expected %q, got %q", i, want[i], res.Targets[i])
		}
	}

	// The repeated DOI shares one relationship.
	paras := pkg.Document().Paragraphs()
	first := paras[0].Hyperlinks()[0].RelID()
	third := paras[3].Hyperlinks()[0].RelID()
	if first != third {
		t.Errorf("expected shared relationship, got %s and %s", first, third)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LinkColor = "nope"
	if _, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error for invalid config")
	}
}
