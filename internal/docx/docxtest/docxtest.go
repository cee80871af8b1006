// Package docxtest builds small in-memory .docx archives for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const contentTypesNoRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// DocumentRels is the relationship part written by Build. rId1 is taken by
// the styles part so new relationships start at rId2.
const DocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const styles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"%s><w:body>`

const documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

const relsNS = ` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// R returns a plain run.
func R(text string) string {
	return Styled("", text)
}

// Styled returns a run whose w:rPr holds rPr verbatim.
func Styled(rPr, text string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if rPr != "" {
		b.WriteString("<w:rPr>" + rPr + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(&b, []byte(text))
	b.WriteString("</w:t></w:r>")
	return b.String()
}

// P returns a paragraph holding runs.
func P(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

// Options tweak the archive Build produces.
type Options struct {
	NoDocumentRels bool // omit word/_rels/document.xml.rels and the rels content type
	NoRNamespace   bool // omit xmlns:r on w:document
}

// Build returns a .docx archive whose body holds paragraphs.
func Build(paragraphs ...string) []byte {
	return BuildWith(Options{}, paragraphs...)
}

// BuildWith is Build with options.
func BuildWith(opts Options, paragraphs ...string) []byte {
	ns := relsNS
	if opts.NoRNamespace {
		ns = ""
	}
	doc := strings.Replace(documentHead, "%s", ns, 1) + strings.Join(paragraphs, "") + documentTail

	entries := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/document.xml", doc},
		{"word/styles.xml", styles},
	}
	if opts.NoDocumentRels {
		entries[0].body = contentTypesNoRels
	} else {
		entries = append(entries, struct{ name, body string }{"word/_rels/document.xml.rels", DocumentRels})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
