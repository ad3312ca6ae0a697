// Package render — EPUB packager.
// Builds an EPUB 3 archive (with a legacy NCX for older readers) from a
// Compilation: an optional cover or title page followed by one XHTML chapter
// per document, with embedded images and footnotes.
package render

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/gaurav-prasanna/postpress/core"
)

const epubMimetype = "application/epub+zip"

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const epubCSS = `body { font-family: serif; line-height: 1.5; margin: 0 5%; }
h1 { font-size: 1.6em; margin: 1em 0 0.5em; }
.meta { color: #555; font-size: 0.9em; border-bottom: 1px solid #ccc; margin-bottom: 1.5em; padding-bottom: 0.5em; }
.meta p { margin: 0.2em 0; }
figure { margin: 1em 0; text-align: center; }
figure img { max-width: 100%; }
figcaption { font-size: 0.85em; color: #555; }
blockquote { margin: 1em 2em; font-style: italic; }
pre { white-space: pre-wrap; font-size: 0.85em; background: #f5f5f5; padding: 0.5em; }
.image-placeholder { color: #777; font-style: italic; }
.footnotes { border-top: 1px solid #ccc; margin-top: 2em; font-size: 0.9em; }
.titlepage { text-align: center; margin-top: 20%; }
.titlepage img { max-width: 80%; max-height: 60vh; }
`

var epubFuncs = template.FuncMap{
	"esc": escapeXML,
	"inc": func(i int) int { return i + 1 },
}

var opfTemplate = template.Must(template.New("opf").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id" xml:lang="{{esc .Language}}">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">urn:uuid:{{.ID}}</dc:identifier>
    <dc:title>{{esc .Title}}</dc:title>
    <dc:creator>{{esc .Author}}</dc:creator>
    <dc:language>{{esc .Language}}</dc:language>
    <meta property="dcterms:modified">{{.Modified}}</meta>
{{- if .CoverID}}
    <meta name="cover" content="{{.CoverID}}"/>
{{- end}}
  </metadata>
  <manifest>
{{- range .Manifest}}
    <item id="{{.ID}}" href="{{.Href}}" media-type="{{.MediaType}}"{{if .Properties}} properties="{{.Properties}}"{{end}}/>
{{- end}}
  </manifest>
  <spine toc="ncx">
{{- range .Spine}}
    <itemref idref="{{.}}"/>
{{- end}}
  </spine>
</package>
`))

var navTemplate = template.Must(template.New("nav").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" xml:lang="{{esc .Language}}" lang="{{esc .Language}}">
<head>
  <title>{{esc .Title}}</title>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Contents</h1>
    <ol>
{{- range .Entries}}
      <li><a href="{{.Href}}">{{esc .Title}}</a></li>
{{- end}}
    </ol>
  </nav>
</body>
</html>
`))

var ncxTemplate = template.Must(template.New("ncx").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1" xml:lang="{{esc .Language}}">
  <head>
    <meta name="dtb:uid" content="urn:uuid:{{.ID}}"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle><text>{{esc .Title}}</text></docTitle>
  <navMap>
{{- range $i, $e := .Entries}}
    <navPoint id="navpoint-{{inc $i}}" playOrder="{{inc $i}}">
      <navLabel><text>{{esc $e.Title}}</text></navLabel>
      <content src="{{$e.Href}}"/>
    </navPoint>
{{- end}}
  </navMap>
</ncx>
`))

var pageTemplate = template.Must(template.New("page").Funcs(epubFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops" xml:lang="{{esc .Language}}" lang="{{esc .Language}}">
<head>
  <title>{{esc .Title}}</title>
  <link rel="stylesheet" type="text/css" href="../style.css"/>
</head>
<body>
{{- if .TitlePage}}
<section class="titlepage" epub:type="titlepage">
{{- if .CoverHref}}
<img src="../{{.CoverHref}}" alt="Cover"/>
{{- end}}
<h1>{{esc .Heading}}</h1>
<p>{{esc .Author}}</p>
</section>
{{- else}}
<h1>{{esc .Heading}}</h1>
{{- if .Metadata}}
<section class="meta">
{{- range .Metadata}}
<p><strong>{{esc .Label}}:</strong> {{esc .Value}}</p>
{{- end}}
</section>
{{- end}}
{{.Body}}
{{- end}}
</body>
</html>
`))

type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

type navEntry struct {
	Title string
	Href  string
}

type epubPackage struct {
	ID       string
	Title    string
	Author   string
	Language string
	Modified string
	CoverID  string
	Manifest []manifestItem
	Spine    []string
	Entries  []navEntry
}

type epubPage struct {
	Language  string
	Title     string
	Heading   string
	Author    string
	TitlePage bool
	CoverHref string
	Metadata  []core.MetadataLine
	Body      string
}

type epubFile struct {
	name string
	data []byte
}

// EPUBRenderer packages Compilations as EPUB 3 archives.
type EPUBRenderer struct {
	Language string
	now      func() time.Time
	newID    func() string
}

// NewEPUBRenderer creates an EPUBRenderer writing books in the given language.
func NewEPUBRenderer(language string) *EPUBRenderer {
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	return &EPUBRenderer{Language: language, now: time.Now, newID: uuid.NewString}
}

// Extension returns the file extension for EPUB output.
func (r *EPUBRenderer) Extension() string {
	return ".epub"
}

// Render builds the EPUB archive for comp.
func (r *EPUBRenderer) Render(comp *core.Compilation, cover *core.CoverAsset) ([]byte, error) {
	if comp == nil || len(comp.Documents) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	pkg := epubPackage{
		ID:       r.newID(),
		Title:    comp.Title,
		Author:   comp.Author,
		Language: r.Language,
		Modified: r.now().UTC().Format("2006-01-02T15:04:05Z"),
		Manifest: []manifestItem{
			{ID: "nav", Href: "nav.xhtml", MediaType: "application/xhtml+xml", Properties: "nav"},
			{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
			{ID: "css", Href: "style.css", MediaType: "text/css"},
		},
	}
	var files []epubFile

	coverHref := ""
	if cover != nil && cover.Image != nil && len(cover.Image.Data) > 0 {
		coverHref = "images/cover." + cover.Image.Extension
		pkg.CoverID = "cover-image"
		pkg.Manifest = append(pkg.Manifest, manifestItem{ID: pkg.CoverID, Href: coverHref, MediaType: cover.Image.MediaType, Properties: "cover-image"})
		files = append(files, epubFile{name: "OEBPS/" + coverHref, data: cover.Image.Data})
	}

	// A title page opens combined books; single posts get a cover page only
	// when there is an image to show.
	if comp.TitlePage || coverHref != "" {
		id, href := "titlepage", "text/title.xhtml"
		heading, author := comp.Title, comp.Author
		if !comp.TitlePage {
			id, href = "cover", "text/cover.xhtml"
			if cover != nil {
				heading, author = cover.Title, cover.Author
			}
		}
		page, err := renderPage(epubPage{
			Language:  r.Language,
			Title:     comp.Title,
			Heading:   heading,
			Author:    author,
			TitlePage: true,
			CoverHref: coverHref,
		})
		if err != nil {
			return nil, err
		}
		pkg.Manifest = append(pkg.Manifest, manifestItem{ID: id, Href: href, MediaType: "application/xhtml+xml"})
		pkg.Spine = append(pkg.Spine, id)
		pkg.Entries = append(pkg.Entries, navEntry{Title: heading, Href: href})
		files = append(files, epubFile{name: "OEBPS/" + href, data: page})
	}

	titles := chapterTitles(comp)
	for i, doc := range comp.Documents {
		n := i + 1
		id := "chapter-" + strconv.Itoa(n)
		href := "text/" + id + ".xhtml"

		body, images := xhtmlBody(doc, n)
		page, err := renderPage(epubPage{
			Language: r.Language,
			Title:    titles[i],
			Heading:  doc.Title,
			Metadata: core.MetadataLines(doc, comp.Fields),
			Body:     body,
		})
		if err != nil {
			return nil, err
		}
		pkg.Manifest = append(pkg.Manifest, manifestItem{ID: id, Href: href, MediaType: "application/xhtml+xml"})
		pkg.Spine = append(pkg.Spine, id)
		pkg.Entries = append(pkg.Entries, navEntry{Title: titles[i], Href: href})
		files = append(files, epubFile{name: "OEBPS/" + href, data: page})

		for _, img := range images {
			pkg.Manifest = append(pkg.Manifest, manifestItem{ID: img.ID, Href: img.Href, MediaType: img.MediaType})
			files = append(files, epubFile{name: "OEBPS/" + img.Href, data: img.Data})
		}
	}

	opf, err := execute(opfTemplate, pkg)
	if err != nil {
		return nil, err
	}
	nav, err := execute(navTemplate, pkg)
	if err != nil {
		return nil, err
	}
	ncx, err := execute(ncxTemplate, pkg)
	if err != nil {
		return nil, err
	}

	head := []epubFile{
		{name: "META-INF/container.xml", data: []byte(containerXML)},
		{name: "OEBPS/content.opf", data: opf},
		{name: "OEBPS/nav.xhtml", data: nav},
		{name: "OEBPS/toc.ncx", data: ncx},
		{name: "OEBPS/style.css", data: []byte(epubCSS)},
	}
	return writeEPUB(append(head, files...), r.now())
}

// chapterTitles returns one title per document, disambiguated by ordinal so
// no two chapters share a title.
func chapterTitles(comp *core.Compilation) []string {
	titles := make([]string, len(comp.Documents))
	seen := map[string]bool{}
	for i, doc := range comp.Documents {
		t := strings.TrimSpace(doc.Title)
		if t == "" {
			t = "Untitled"
		}
		if seen[t] {
			ordinal := i + 1
			if i < len(comp.Ordinals) {
				ordinal = comp.Ordinals[i]
			}
			base := t
			t = base + " (" + strconv.Itoa(ordinal) + ")"
			for n := 2; seen[t]; n++ {
				t = base + " (" + strconv.Itoa(ordinal) + "-" + strconv.Itoa(n) + ")"
			}
		}
		seen[t] = true
		titles[i] = t
	}
	return titles
}

func renderPage(p epubPage) ([]byte, error) {
	return execute(pageTemplate, p)
}

func execute(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

// writeEPUB zips files behind an uncompressed mimetype entry, which must be
// the first entry in the archive with no data descriptor.
func writeEPUB(files []epubFile, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mt := []byte(epubMimetype)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "mimetype",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(mt),
		CompressedSize64:   uint64(len(mt)),
		UncompressedSize64: uint64(len(mt)),
	})
	if err != nil {
		return nil, fmt.Errorf("writing mimetype: %w", err)
	}
	if _, err := w.Write(mt); err != nil {
		return nil, fmt.Errorf("writing mimetype: %w", err)
	}

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", f.name, err)
		}
		if _, err := io.Copy(w, bytes.NewReader(f.data)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}
