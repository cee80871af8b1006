package docx

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var bodyParagraphs = xpath.MustCompile(`/*[local-name()='document']/*[local-name()='body']/*[local-name()='p']`)

// Document is the main document part together with its relationship table.
type Document struct {
	part *part
	rels *Relationships
}

// Paragraphs returns the paragraphs directly under the document body, top to
// bottom. Paragraphs nested in tables or text boxes are not included.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, n := range xmlquery.QuerySelectorAll(d.part.root, bodyParagraphs) {
		if d.part.is(n, nsW, "p") {
			out = append(out, &Paragraph{doc: d, node: n})
		}
	}
	return out
}

// Relationships returns the relationship table of the main part.
func (d *Document) Relationships() *Relationships {
	return d.rels
}

// AddHyperlink registers an external hyperlink relationship to url and
// returns its id.
func (d *Document) AddHyperlink(url string) (string, error) {
	return d.rels.AddHyperlink(url)
}

// NewHyperlink builds a detached w:hyperlink element pointing at relID and
// moves r into it as its only child.
func (d *Document) NewHyperlink(relID string, r *Run) *Hyperlink {
	p := d.part
	p.prefixFor(nsR, "r")
	n := p.newElement(nsW, "hyperlink")
	p.setAttr(n, nsR, "id", relID)
	if r.node.Parent != nil {
		detach(r.node)
	}
	xmlquery.AddChild(n, r.node)
	p.dirty = true
	return &Hyperlink{doc: d, node: n}
}

// Inline is a direct child of a paragraph that carries text: a *Run or a
// *Hyperlink.
type Inline interface {
	Text() string
	xmlNode() *xmlquery.Node
}

// Paragraph is a w:p element.
type Paragraph struct {
	doc  *Document
	node *xmlquery.Node
}

// Runs returns the runs that are direct children of the paragraph.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for c := p.node.FirstChild; c != nil; c = c.NextSibling {
		if p.doc.part.is(c, nsW, "r") {
			out = append(out, &Run{doc: p.doc, node: c})
		}
	}
	return out
}

// Content returns the runs and hyperlinks of the paragraph in order.
func (p *Paragraph) Content() []Inline {
	var out []Inline
	for c := p.node.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case p.doc.part.is(c, nsW, "r"):
			out = append(out, &Run{doc: p.doc, node: c})
		case p.doc.part.is(c, nsW, "hyperlink"):
			out = append(out, &Hyperlink{doc: p.doc, node: c})
		}
	}
	return out
}

// Hyperlinks returns the hyperlinks that are direct children of the paragraph.
func (p *Paragraph) Hyperlinks() []*Hyperlink {
	var out []*Hyperlink
	for _, in := range p.Content() {
		if h, ok := in.(*Hyperlink); ok {
			out = append(out, h)
		}
	}
	return out
}

// Text returns the rendered text of the paragraph, including the text of
// hyperlinked runs.
func (p *Paragraph) Text() string {
	var buf strings.Builder
	for _, in := range p.Content() {
		buf.WriteString(in.Text())
	}
	return buf.String()
}

// InsertAfter splices in into the paragraph immediately after ref. ref must
// be a child of the paragraph and in must be detached.
func (p *Paragraph) InsertAfter(ref, in Inline) {
	insertAfter(ref.xmlNode(), in.xmlNode())
	p.doc.part.dirty = true
}

// XML returns the serialized w:p element.
func (p *Paragraph) XML() string {
	return p.doc.part.outerXML(p.node)
}

// Hyperlink is a w:hyperlink element.
type Hyperlink struct {
	doc  *Document
	node *xmlquery.Node
}

// RelID returns the relationship id the hyperlink points at.
func (h *Hyperlink) RelID() string {
	v, _ := h.doc.part.attr(h.node, nsR, "id")
	return v
}

// Target resolves the hyperlink's relationship target.
func (h *Hyperlink) Target() string {
	rel, ok := h.doc.rels.Lookup(h.RelID())
	if !ok {
		return ""
	}
	return rel.Target
}

// Runs returns the runs wrapped by the hyperlink.
func (h *Hyperlink) Runs() []*Run {
	var out []*Run
	for c := h.node.FirstChild; c != nil; c = c.NextSibling {
		if h.doc.part.is(c, nsW, "r") {
			out = append(out, &Run{doc: h.doc, node: c})
		}
	}
	return out
}

func (h *Hyperlink) Text() string {
	var buf strings.Builder
	for _, r := range h.Runs() {
		buf.WriteString(r.Text())
	}
	return buf.String()
}

func (h *Hyperlink) xmlNode() *xmlquery.Node { return h.node }
