package docx

import (
	"strconv"

	"github.com/antchfx/xmlquery"
)

const (
	RelTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	targetModeExt    = "External"
)

// Relationship is one entry of a part's relationship table.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Relationships is the relationship table of a single source part.
type Relationships struct {
	pkg    *Package
	part   *part
	source string
}

// All returns the relationships in document order.
func (rs *Relationships) All() []Relationship {
	var out []Relationship
	for _, n := range rs.nodes() {
		out = append(out, rs.decode(n))
	}
	return out
}

// Lookup returns the relationship with the given id.
func (rs *Relationships) Lookup(id string) (Relationship, bool) {
	for _, n := range rs.nodes() {
		if v, _ := rs.part.attr(n, "", "Id"); v == id {
			return rs.decode(n), true
		}
	}
	return Relationship{}, false
}

// AddHyperlink returns the id of an external hyperlink relationship to url.
// An existing relationship with the same target is reused; otherwise a new
// one is registered under the lowest free "rIdN" id.
func (rs *Relationships) AddHyperlink(url string) (string, error) {
	for _, rel := range rs.All() {
		if rel.Type == RelTypeHyperlink && rel.External && rel.Target == url {
			return rel.ID, nil
		}
	}
	if rs.pkg != nil && rs.isCreated() && !rs.part.dirty {
		if err := rs.pkg.ensureRelsContentType(); err != nil {
			return "", err
		}
	}

	el := rs.part.documentElement()
	n := rs.part.newElement(nsPkgRels, "Relationship")
	id := rs.nextID()
	rs.part.setAttr(n, "", "Id", id)
	rs.part.setAttr(n, "", "Type", RelTypeHyperlink)
	rs.part.setAttr(n, "", "Target", url)
	rs.part.setAttr(n, "", "TargetMode", targetModeExt)
	xmlquery.AddChild(el, n)
	rs.part.dirty = true
	return id, nil
}

func (rs *Relationships) isCreated() bool {
	for _, name := range rs.pkg.created {
		if name == rs.part.name {
			return true
		}
	}
	return false
}

func (rs *Relationships) nextID() string {
	used := make(map[string]bool)
	for _, n := range rs.nodes() {
		if v, ok := rs.part.attr(n, "", "Id"); ok {
			used[v] = true
		}
	}
	for i := 1; ; i++ {
		id := "rId" + strconv.Itoa(i)
		if !used[id] {
			return id
		}
	}
}

func (rs *Relationships) nodes() []*xmlquery.Node {
	el := rs.part.documentElement()
	if el == nil {
		return nil
	}
	var out []*xmlquery.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if rs.part.is(c, nsPkgRels, "Relationship") {
			out = append(out, c)
		}
	}
	return out
}

func (rs *Relationships) decode(n *xmlquery.Node) Relationship {
	var rel Relationship
	rel.ID, _ = rs.part.attr(n, "", "Id")
	rel.Type, _ = rs.part.attr(n, "", "Type")
	rel.Target, _ = rs.part.attr(n, "", "Target")
	mode, _ := rs.part.attr(n, "", "TargetMode")
	rel.External = mode == targetModeExt
	return rel
}
