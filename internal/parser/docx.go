package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// Summary is what an independent reader sees in a document body.
type Summary struct {
	Paragraphs int
	Texts      []string // plain run text per paragraph; hyperlinked runs are not included
}

// SummarizeFile parses the .docx at path with go-docx.
func SummarizeFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Summary{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Summarize(f, info.Size())
}

// Summarize parses a .docx from r with go-docx.
func Summarize(r io.ReaderAt, size int64) (Summary, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return Summary{}, fmt.Errorf("parse docx: %w", err)
	}

	var s Summary
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		s.Paragraphs++
		s.Texts = append(s.Texts, docxParagraphText(para))
	}
	return s, nil
}

// Verify re-reads a written document and checks that the body still holds
// the expected number of paragraphs.
func Verify(path string, wantParagraphs int) error {
	s, err := SummarizeFile(path)
	if err != nil {
		return err
	}
	if s.Paragraphs != wantParagraphs {
		return fmt.Errorf("expected %d paragraphs, reader found %d", wantParagraphs, s.Paragraphs)
	}
	return nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return buf.String()
}
