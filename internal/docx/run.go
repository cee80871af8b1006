package docx

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Run is a w:r element: a span of text sharing one formatting record.
type Run struct {
	doc  *Document
	node *xmlquery.Node
}

// Text returns the run's text. Tabs render as "\t", breaks as "\n".
func (r *Run) Text() string {
	p := r.doc.part
	var buf strings.Builder
	for c := r.node.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case p.is(c, nsW, "t"):
			buf.WriteString(c.InnerText())
		case p.is(c, nsW, "tab"):
			buf.WriteByte('\t')
		case p.is(c, nsW, "br"), p.is(c, nsW, "cr"):
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// SetText replaces the run's content with text and keeps its formatting.
// "\t" becomes w:tab and "\n" becomes w:br.
func (r *Run) SetText(text string) {
	p := r.doc.part
	for c := r.node.FirstChild; c != nil; {
		next := c.NextSibling
		if !p.is(c, nsW, "rPr") {
			detach(c)
		}
		c = next
	}

	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		s := pending.String()
		t := p.newElement(nsW, "t")
		if strings.TrimSpace(s) != s {
			p.setAttr(t, nsXML, "space", "preserve")
		}
		xmlquery.AddChild(t, &xmlquery.Node{Type: xmlquery.TextNode, Data: s})
		xmlquery.AddChild(r.node, t)
		pending.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			xmlquery.AddChild(r.node, p.newElement(nsW, "tab"))
		case '\n', '\r':
			flush()
			xmlquery.AddChild(r.node, p.newElement(nsW, "br"))
		default:
			pending.WriteRune(ch)
		}
	}
	flush()
	p.dirty = true
}

// Style returns the run's direct formatting.
func (r *Run) Style() Style {
	rPr := r.doc.part.child(r.node, nsW, "rPr")
	if rPr == nil {
		return Style{}
	}
	return r.doc.part.readStyle(rPr)
}

// SetColor sets an RGB text color such as "0563C1". Any theme color on the
// run is dropped.
func (r *Run) SetColor(hex string) {
	p := r.doc.part
	c := p.rPrChild(r.rPr(), "color")
	p.setAttr(c, nsW, "val", strings.ToUpper(hex))
	p.removeAttr(c, nsW, "themeColor")
	p.removeAttr(c, nsW, "themeTint")
	p.removeAttr(c, nsW, "themeShade")
	p.dirty = true
}

// SetUnderline switches a single underline on or off explicitly.
func (r *Run) SetUnderline(on bool) {
	p := r.doc.part
	u := p.rPrChild(r.rPr(), "u")
	val := "none"
	if on {
		val = "single"
	}
	p.setAttr(u, nsW, "val", val)
	p.dirty = true
}

// Clone returns a detached copy of the run holding text. The copy carries
// the run's entire w:rPr, so every formatting attribute is kept, including
// ones Style does not model.
func (r *Run) Clone(text string) *Run {
	p := r.doc.part
	n := p.newElement(nsW, "r")
	n.Prefix = r.node.Prefix
	if rPr := p.child(r.node, nsW, "rPr"); rPr != nil {
		xmlquery.AddChild(n, cloneNode(rPr))
	}
	c := &Run{doc: r.doc, node: n}
	c.SetText(text)
	return c
}

// rPr returns the run's w:rPr, adding it as the first child if absent.
func (r *Run) rPr() *xmlquery.Node {
	p := r.doc.part
	if rPr := p.child(r.node, nsW, "rPr"); rPr != nil {
		return rPr
	}
	rPr := p.newElement(nsW, "rPr")
	prependChild(r.node, rPr)
	return rPr
}

func (r *Run) xmlNode() *xmlquery.Node { return r.node }
