package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Namespace URIs used by the WordprocessingML main part and OPC relationship parts.
const (
	nsW        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRels  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsXML      = "http://www.w3.org/XML/1998/namespace"
	nsXMLNS    = "xmlns"
	relsCTType = "application/vnd.openxmlformats-package.relationships+xml"
)

// part is one parsed XML entry of the package.
type part struct {
	name  string
	root  *xmlquery.Node
	dirty bool

	// prefix -> uri and uri -> prefix, collected from every xmlns declaration in the part.
	uris     map[string]string
	prefixes map[string]string
}

func parsePart(name string, data []byte) (*part, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	p := &part{name: name, root: root}
	p.collectNamespaces()
	return p, nil
}

// newPart returns an empty part holding a single root element.
func newPart(name, uri, local string) *part {
	root := &xmlquery.Node{Type: xmlquery.DocumentNode}
	decl := &xmlquery.Node{
		Type: xmlquery.DeclarationNode,
		Data: "xml",
		Attr: []xmlquery.Attr{
			{Name: xml.Name{Local: "version"}, Value: "1.0"},
			{Name: xml.Name{Local: "encoding"}, Value: "UTF-8"},
			{Name: xml.Name{Local: "standalone"}, Value: "yes"},
		},
	}
	xmlquery.AddChild(root, decl)
	el := &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         local,
		NamespaceURI: uri,
		Attr:         []xmlquery.Attr{{Name: xml.Name{Local: nsXMLNS}, Value: uri}},
	}
	xmlquery.AddChild(root, el)
	p := &part{name: name, root: root}
	p.collectNamespaces()
	return p
}

func (p *part) collectNamespaces() {
	p.uris = map[string]string{"xml": nsXML}
	p.prefixes = map[string]string{nsXML: "xml"}
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		if n.Type == xmlquery.ElementNode {
			for _, a := range n.Attr {
				switch {
				case a.Name.Space == nsXMLNS:
					p.declare(a.Name.Local, a.Value)
				case a.Name.Space == "" && a.Name.Local == nsXMLNS:
					p.declare("", a.Value)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
}

func (p *part) declare(prefix, uri string) {
	if _, ok := p.uris[prefix]; !ok {
		p.uris[prefix] = uri
	}
	if _, ok := p.prefixes[uri]; !ok {
		p.prefixes[uri] = prefix
	}
}

// documentElement returns the outermost element of the part.
func (p *part) documentElement() *xmlquery.Node {
	for c := p.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// prefixFor returns the prefix bound to uri, declaring fallback on the
// document element when the part has no binding for it yet.
func (p *part) prefixFor(uri, fallback string) string {
	if prefix, ok := p.prefixes[uri]; ok {
		return prefix
	}
	if el := p.documentElement(); el != nil {
		el.Attr = append(el.Attr, xmlquery.Attr{
			Name:  xml.Name{Space: nsXMLNS, Local: fallback},
			Value: uri,
		})
		p.dirty = true
	}
	p.declare(fallback, uri)
	return fallback
}

// is reports whether n is the element {uri}local.
func (p *part) is(n *xmlquery.Node, uri, local string) bool {
	if n == nil || n.Type != xmlquery.ElementNode || n.Data != local {
		return false
	}
	if n.NamespaceURI != "" {
		return n.NamespaceURI == uri
	}
	return p.uris[n.Prefix] == uri
}

func (p *part) newElement(uri, local string) *xmlquery.Node {
	prefix := ""
	if uri != "" {
		prefix = p.prefixes[uri]
	}
	return &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         local,
		Prefix:       prefix,
		NamespaceURI: uri,
	}
}

func (p *part) attrMatches(a xmlquery.Attr, uri, local string) bool {
	if a.Name.Local != local {
		return false
	}
	if uri == "" {
		return a.Name.Space == ""
	}
	return a.Name.Space == uri || p.uris[a.Name.Space] == uri
}

func (p *part) attr(n *xmlquery.Node, uri, local string) (string, bool) {
	for _, a := range n.Attr {
		if p.attrMatches(a, uri, local) {
			return a.Value, true
		}
	}
	return "", false
}

func (p *part) setAttr(n *xmlquery.Node, uri, local, value string) {
	for i, a := range n.Attr {
		if p.attrMatches(a, uri, local) {
			n.Attr[i].Value = value
			return
		}
	}
	space := ""
	if uri != "" {
		space = p.prefixes[uri]
	}
	n.Attr = append(n.Attr, xmlquery.Attr{Name: xml.Name{Space: space, Local: local}, Value: value})
}

func (p *part) removeAttr(n *xmlquery.Node, uri, local string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if !p.attrMatches(a, uri, local) {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func (p *part) child(n *xmlquery.Node, uri, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if p.is(c, uri, local) {
			return c
		}
	}
	return nil
}

// insertAfter splices n into ref's parent immediately after ref.
func insertAfter(ref, n *xmlquery.Node) {
	n.Parent = ref.Parent
	n.PrevSibling = ref
	n.NextSibling = ref.NextSibling
	if ref.NextSibling != nil {
		ref.NextSibling.PrevSibling = n
	} else if ref.Parent != nil {
		ref.Parent.LastChild = n
	}
	ref.NextSibling = n
}

// insertBefore splices n into ref's parent immediately before ref.
func insertBefore(ref, n *xmlquery.Node) {
	n.Parent = ref.Parent
	n.NextSibling = ref
	n.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = n
	} else if ref.Parent != nil {
		ref.Parent.FirstChild = n
	}
	ref.PrevSibling = n
}

// prependChild makes n the first child of parent.
func prependChild(parent, n *xmlquery.Node) {
	if parent.FirstChild == nil {
		xmlquery.AddChild(parent, n)
		return
	}
	insertBefore(parent.FirstChild, n)
}

// detach unlinks n from its parent and siblings.
func detach(n *xmlquery.Node) {
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else if n.Parent != nil {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else if n.Parent != nil {
		n.Parent.LastChild = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

// cloneNode deep-copies n. The copy is detached.
func cloneNode(n *xmlquery.Node) *xmlquery.Node {
	c := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if len(n.Attr) > 0 {
		c.Attr = append([]xmlquery.Attr(nil), n.Attr...)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		xmlquery.AddChild(c, cloneNode(ch))
	}
	return c
}

// Serialization keeps every node as parsed. Text is never trimmed or
// reindented, so untouched paragraphs round-trip unchanged.

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

func (p *part) bytes() []byte {
	var buf bytes.Buffer
	p.write(&buf, p.root)
	return buf.Bytes()
}

func (p *part) outerXML(n *xmlquery.Node) string {
	var buf bytes.Buffer
	p.write(&buf, n)
	return buf.String()
}

func (p *part) write(b *bytes.Buffer, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.write(b, c)
		}
	case xmlquery.DeclarationNode:
		target := n.Data
		if target == "" {
			target = "xml"
		}
		b.WriteString("<?" + target)
		if len(n.Attr) == 0 && target == "xml" {
			b.WriteString(` version="1.0" encoding="UTF-8" standalone="yes"`)
		}
		for _, a := range n.Attr {
			b.WriteString(" " + a.Name.Local + `="` + attrEscaper.Replace(a.Value) + `"`)
		}
		b.WriteString("?>")
		if n.NextSibling != nil && n.NextSibling.Type != xmlquery.TextNode {
			b.WriteString("\r\n")
		}
	case xmlquery.ElementNode:
		name := n.Data
		if n.Prefix != "" {
			name = n.Prefix + ":" + n.Data
		}
		b.WriteString("<" + name)
		for _, a := range n.Attr {
			b.WriteString(" " + p.attrName(a) + `="` + attrEscaper.Replace(a.Value) + `"`)
		}
		if n.FirstChild == nil {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.write(b, c)
		}
		b.WriteString("</" + name + ">")
	case xmlquery.TextNode:
		b.WriteString(textEscaper.Replace(n.Data))
	case xmlquery.CharDataNode:
		b.WriteString("<![CDATA[" + n.Data + "]]>")
	case xmlquery.CommentNode:
		b.WriteString("<!--" + n.Data + "-->")
	}
}

// attrName renders a qualified attribute name. The parser may leave either
// a prefix or a namespace URI in Name.Space; both map back to the prefix.
func (p *part) attrName(a xmlquery.Attr) string {
	switch {
	case a.Name.Space == "":
		return a.Name.Local
	case a.Name.Space == nsXMLNS:
		return "xmlns:" + a.Name.Local
	}
	if prefix, ok := p.prefixes[a.Name.Space]; ok {
		return prefix + ":" + a.Name.Local
	}
	return a.Name.Space + ":" + a.Name.Local
}
