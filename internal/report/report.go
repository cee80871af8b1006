// Package report prints the before/after dump of processed paragraphs.
package report

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes a human-readable report to w.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Before dumps the candidates as found and opens the processing section.
func (p *Printer) Before(paragraphs []string) {
	p.banner("BEFORE PROCESSING")
	p.lines(paragraphs)
	fmt.Fprintln(p.w)
	p.banner("PROCESSING")
}

func (p *Printer) Skip(_ string) {
	fmt.Fprintln(p.w, "skipping 1 DOI reference...")
}

func (p *Printer) After(paragraphs []string) {
	fmt.Fprintln(p.w)
	p.banner("AFTER PROCESSING")
	p.lines(paragraphs)
}

func (p *Printer) banner(title string) {
	rule := strings.Repeat("=", len(title))
	fmt.Fprintln(p.w, rule)
	fmt.Fprintln(p.w, title)
	fmt.Fprintln(p.w, rule)
}

func (p *Printer) lines(paragraphs []string) {
	for _, s := range paragraphs {
		fmt.Fprintln(p.w, s)
	}
}
