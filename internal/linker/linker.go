// Package linker finds bibliography paragraphs that carry a DOI and turns
// the DOI into a hyperlink to a resolver.
package linker

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgallion1/doilink/internal/config"
	"github.com/dgallion1/doilink/internal/docx"
)

// ErrPrefixNotFound means no single run of a candidate paragraph contains the
// DOI prefix, typically because formatting split it across runs.
var ErrPrefixNotFound = errors.New("DOI prefix not found in a single run")

// Location is where the DOI prefix sits inside a paragraph.
type Location struct {
	Run    *docx.Run
	Offset int // byte offset of the prefix in Run.Text()
}

// Reporter observes processing. It has no effect on the document.
type Reporter interface {
	Before(paragraphs []string)
	Skip(paragraph string)
	After(paragraphs []string)
}

// Result summarises one pass over a document.
type Result struct {
	Candidates int
	Linked     int
	Skipped    int
	Targets    []string
}

// Linker rewrites DOI references using one configuration.
type Linker struct {
	cfg   config.Config
	match *regexp.Regexp
	log   *slog.Logger
}

func New(cfg config.Config, log *slog.Logger) (*Linker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	match, err := cfg.Matcher()
	if err != nil {
		return nil, err
	}
	return &Linker{cfg: cfg, match: match, log: log}, nil
}

// Process selects the candidate paragraphs of doc and links each of them in
// document order. Paragraphs whose prefix cannot be located are reported and
// left untouched.
func (l *Linker) Process(doc *docx.Document, rep Reporter) (Result, error) {
	candidates := Select(doc.Paragraphs(), l.match)
	res := Result{Candidates: len(candidates)}
	rep.Before(texts(candidates))

	for _, p := range candidates {
		loc, err := Locate(p, l.cfg.DOIPrefix)
		if errors.Is(err, ErrPrefixNotFound) {
			l.log.Warn("skipping reference", "reason", err, "text", p.Text())
			rep.Skip(p.Text())
			res.Skipped++
			continue
		}
		target, err := Link(doc, p, loc, l.cfg)
		if err != nil {
			return res, fmt.Errorf("link %q: %w", p.Text(), err)
		}
		l.log.Debug("linked reference", "target", target)
		res.Linked++
		res.Targets = append(res.Targets, target)
	}

	rep.After(texts(candidates))
	return res, nil
}

// Select returns, in order, the paragraphs whose text matches match.
func Select(paragraphs []*docx.Paragraph, match *regexp.Regexp) []*docx.Paragraph {
	var out []*docx.Paragraph
	for _, p := range paragraphs {
		if match.MatchString(p.Text()) {
			out = append(out, p)
		}
	}
	return out
}

// Locate finds the first direct run of p whose text contains prefix.
func Locate(p *docx.Paragraph, prefix string) (Location, error) {
	for _, r := range p.Runs() {
		if i := strings.Index(r.Text(), prefix); i >= 0 {
			return Location{Run: r, Offset: i}, nil
		}
	}
	return Location{}, ErrPrefixNotFound
}

// Link splits the located run into the text before the DOI plus "(", a
// hyperlinked label run and a ")" run, and returns the link target. The new
// runs copy the located run's formatting; the label run is then recoloured
// and underlined as configured. The resulting paragraph order is
// [..., prefix run, hyperlink(label run), ")" run, ...following runs].
func Link(doc *docx.Document, p *docx.Paragraph, loc Location, cfg config.Config) (string, error) {
	text := loc.Run.Text()
	before := text[:loc.Offset] + "("
	doi := strings.TrimSpace(text[loc.Offset+len(cfg.DOIPrefix):])

	label := loc.Run.Clone(cfg.LinkText)
	label.SetColor(cfg.LinkColor)
	label.SetUnderline(cfg.LinkUnderline)
	closing := loc.Run.Clone(")")

	target := cfg.URLBase + doi
	relID, err := doc.AddHyperlink(target)
	if err != nil {
		return "", err
	}
	link := doc.NewHyperlink(relID, label)

	p.InsertAfter(loc.Run, link)
	p.InsertAfter(link, closing)
	loc.Run.SetText(before)
	return target, nil
}

func texts(paragraphs []*docx.Paragraph) []string {
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = p.Text()
	}
	return out
}
