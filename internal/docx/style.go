package docx

import (
	"strconv"

	"github.com/antchfx/xmlquery"
)

// Toggle is a tri-state run property: unset runs inherit from their style.
type Toggle int8

const (
	Inherit Toggle = iota
	On
	Off
)

func (t Toggle) String() string {
	switch t {
	case On:
		return "on"
	case Off:
		return "off"
	}
	return "inherit"
}

// Style is the direct character formatting of a run. It is a plain value:
// two runs are formatted alike when their Styles are equal.
type Style struct {
	StyleID    string
	FontName   string
	Size       int // half-points, 0 when unset
	Color      string
	ThemeColor string
	Highlight  string
	Underline  string // w:u value, "" when unset
	VertAlign  string // "superscript", "subscript", "baseline" or ""

	Bold          Toggle
	Italic        Toggle
	ComplexBold   Toggle
	ComplexItalic Toggle
	AllCaps       Toggle
	SmallCaps     Toggle
	Strike        Toggle
	DoubleStrike  Toggle
	Outline       Toggle
	Shadow        Toggle
	Emboss        Toggle
	Imprint       Toggle
	NoProof       Toggle
	SnapToGrid    Toggle
	Hidden        Toggle
	WebHidden     Toggle
	SpecVanish    Toggle
	RTL           Toggle
	ComplexScript Toggle
	Math          Toggle
}

// rPrOrder is the child sequence of w:rPr. Word rejects run properties that
// appear out of this order.
var rPrOrder = []string{
	"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike",
	"dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
	"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz",
	"szCs", "highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
	"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish", "oMath",
	"rPrChange",
}

var rPrRank = func() map[string]int {
	m := make(map[string]int, len(rPrOrder))
	for i, name := range rPrOrder {
		m[name] = i
	}
	return m
}()

func (p *part) readStyle(rPr *xmlquery.Node) Style {
	var s Style
	toggles := map[string]*Toggle{
		"b": &s.Bold, "i": &s.Italic, "bCs": &s.ComplexBold, "iCs": &s.ComplexItalic,
		"caps": &s.AllCaps, "smallCaps": &s.SmallCaps, "strike": &s.Strike,
		"dstrike": &s.DoubleStrike, "outline": &s.Outline, "shadow": &s.Shadow,
		"emboss": &s.Emboss, "imprint": &s.Imprint, "noProof": &s.NoProof,
		"snapToGrid": &s.SnapToGrid, "vanish": &s.Hidden, "webHidden": &s.WebHidden,
		"specVanish": &s.SpecVanish, "rtl": &s.RTL, "cs": &s.ComplexScript, "oMath": &s.Math,
	}
	for c := rPr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || !p.is(c, nsW, c.Data) {
			continue
		}
		val, hasVal := p.attr(c, nsW, "val")
		if t, ok := toggles[c.Data]; ok {
			*t = On
			if hasVal && !onOff(val) {
				*t = Off
			}
			continue
		}
		switch c.Data {
		case "rStyle":
			s.StyleID = val
		case "rFonts":
			s.FontName, _ = p.attr(c, nsW, "ascii")
		case "sz":
			s.Size, _ = strconv.Atoi(val)
		case "color":
			s.Color = val
			s.ThemeColor, _ = p.attr(c, nsW, "themeColor")
		case "highlight":
			s.Highlight = val
		case "u":
			s.Underline = val
		case "vertAlign":
			s.VertAlign = val
		}
	}
	return s
}

// onOff parses an ST_OnOff value.
func onOff(v string) bool {
	switch v {
	case "0", "false", "off":
		return false
	}
	return true
}

// rPrChild returns the w:rPr child called local, inserting it at its
// schema position when absent.
func (p *part) rPrChild(rPr *xmlquery.Node, local string) *xmlquery.Node {
	if c := p.child(rPr, nsW, local); c != nil {
		return c
	}
	n := p.newElement(nsW, local)
	rank, known := rPrRank[local]
	for c := rPr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if r, ok := rPrRank[c.Data]; ok && known && r > rank {
			insertBefore(c, n)
			return n
		}
	}
	xmlquery.AddChild(rPr, n)
	return n
}
