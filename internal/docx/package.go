// Package docx opens a WordprocessingML package, exposes its body
// paragraphs, runs and hyperlink relationships as a mutable tree, and writes
// the package back out.
//
// Only the parts that were modified are re-serialized. Every other archive
// entry is copied through byte for byte.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const (
	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	defaultMainPart       = "word/document.xml"
	contentTypesPart      = "[Content_Types].xml"
)

var (
	ErrMainPartNotFound = errors.New("main document part not found")
	errPartNotFound     = errors.New("part not found")
)

var defaultExtensions = xpath.MustCompile(`/*[local-name()='Types']/*[local-name()='Default']`)

// Package is a loaded .docx archive.
type Package struct {
	entries []*zip.File
	byName  map[string]*zip.File
	parts   map[string]*part
	created []string // parts that do not exist in the source archive
	doc     *Document
}

// Open reads the whole file at path into memory and loads it.
func Open(filename string) (*Package, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read loads a package from r. r must stay valid until the package is written.
func Read(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	pkg := &Package{
		entries: zr.File,
		byName:  make(map[string]*zip.File, len(zr.File)),
		parts:   make(map[string]*part),
	}
	for _, f := range zr.File {
		pkg.byName[f.Name] = f
	}

	mainName, err := pkg.mainPartName()
	if err != nil {
		return nil, err
	}
	main, err := pkg.part(mainName)
	if errors.Is(err, errPartNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMainPartNotFound, mainName)
	}
	if err != nil {
		return nil, err
	}
	rels, err := pkg.relationships(mainName)
	if err != nil {
		return nil, err
	}
	pkg.doc = &Document{part: main, rels: rels}
	return pkg, nil
}

// Document returns the main document part.
func (pkg *Package) Document() *Document {
	return pkg.doc
}

// mainPartName resolves the officeDocument relationship of the package.
func (pkg *Package) mainPartName() (string, error) {
	rootRels, err := pkg.part("_rels/.rels")
	if errors.Is(err, errPartNotFound) {
		if _, ok := pkg.byName[defaultMainPart]; ok {
			return defaultMainPart, nil
		}
		return "", ErrMainPartNotFound
	}
	if err != nil {
		return "", err
	}
	rs := &Relationships{part: rootRels, source: ""}
	for _, rel := range rs.All() {
		if rel.Type == relTypeOfficeDocument && !rel.External {
			return resolveTarget("", rel.Target), nil
		}
	}
	return "", ErrMainPartNotFound
}

// part returns the parsed part called name, parsing it on first use.
func (pkg *Package) part(name string) (*part, error) {
	if p, ok := pkg.parts[name]; ok {
		return p, nil
	}
	f, ok := pkg.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errPartNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	p, err := parsePart(name, data)
	if err != nil {
		return nil, err
	}
	pkg.parts[name] = p
	return p, nil
}

// relationships loads the relationship part that belongs to source. When the
// archive has none, an empty part is created; it is only written once a
// relationship is added to it.
func (pkg *Package) relationships(source string) (*Relationships, error) {
	name := relsPartName(source)
	p, err := pkg.part(name)
	if errors.Is(err, errPartNotFound) {
		p = newPart(name, nsPkgRels, "Relationships")
		pkg.parts[name] = p
		pkg.created = append(pkg.created, name)
	} else if err != nil {
		return nil, err
	}
	return &Relationships{pkg: pkg, part: p, source: source}, nil
}

// ensureRelsContentType registers the .rels extension in [Content_Types].xml.
func (pkg *Package) ensureRelsContentType() error {
	ct, err := pkg.part(contentTypesPart)
	if err != nil {
		return err
	}
	for _, d := range xmlquery.QuerySelectorAll(ct.root, defaultExtensions) {
		if ext, _ := ct.attr(d, "", "Extension"); strings.EqualFold(ext, "rels") {
			return nil
		}
	}
	types := ct.documentElement()
	if types == nil {
		return fmt.Errorf("%s has no root element", contentTypesPart)
	}
	def := ct.newElement(nsTypes, "Default")
	ct.setAttr(def, "", "Extension", "rels")
	ct.setAttr(def, "", "ContentType", relsCTType)
	prependChild(types, def)
	ct.dirty = true
	return nil
}

// WriteTo writes the package as a zip archive. Entry order of the source
// archive is preserved; unmodified entries are copied without recompression.
func (pkg *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, f := range pkg.entries {
		p, ok := pkg.parts[f.Name]
		if !ok || !p.dirty {
			if err := zw.Copy(f); err != nil {
				return cw.n, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		hdr := &zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified}
		if err := writeEntry(zw, hdr, p.bytes()); err != nil {
			return cw.n, err
		}
	}
	for _, name := range pkg.created {
		if !pkg.parts[name].dirty {
			continue
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if err := writeEntry(zw, hdr, pkg.parts[name].bytes()); err != nil {
			return cw.n, err
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("close archive: %w", err)
	}
	return cw.n, nil
}

// Save writes the package to filename. The archive is written to a
// temporary file next to filename and renamed into place, so filename is
// never left half-written.
func (pkg *Package) Save(filename string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".doilink-*.docx")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := pkg.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return n, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return n, fmt.Errorf("rename to %s: %w", filename, err)
	}
	return n, nil
}

func writeEntry(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create %s: %w", hdr.Name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// relsPartName returns the relationship part name for source, e.g.
// "word/document.xml" -> "word/_rels/document.xml.rels".
func relsPartName(source string) string {
	dir, base := path.Split(source)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves an internal relationship target against the
// directory of its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}
