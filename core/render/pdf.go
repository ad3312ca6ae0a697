// Package render — PDF packager.
// Lays a Compilation out as an A4 PDF using gofpdf: an optional title page
// with the cover image, then each document with its title, metadata block,
// body blocks and footnotes. JPEG, PNG and GIF images are embedded; others
// become placeholders.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/postpress/core"
)

var pdfImageTypes = map[string]string{
	"image/jpeg": "JPG",
	"image/png":  "PNG",
	"image/gif":  "GIF",
}

// PDFRenderer renders Compilations as PDF documents.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

type pdfDoc struct {
	*gofpdf.Fpdf
	tr     func(string) string
	images int
}

// Render converts a Compilation into PDF bytes.
func (r *PDFRenderer) Render(comp *core.Compilation, cover *core.CoverAsset) ([]byte, error) {
	if comp == nil || len(comp.Documents) == 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	pdf := &pdfDoc{Fpdf: gofpdf.New("P", "mm", "A4", "")}
	pdf.tr = pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(comp.Title, true)
	pdf.SetAuthor(comp.Author, true)
	pdf.SetCreator("postpress", true)
	pdf.SetAutoPageBreak(true, 15)

	hasCover := cover != nil && cover.Image != nil && len(cover.Image.Data) > 0
	if comp.TitlePage || hasCover {
		var img *core.CoverImage
		if hasCover {
			img = cover.Image
		}
		pdf.titlePage(comp.Title, comp.Author, img)
	}

	for _, doc := range comp.Documents {
		pdf.AddPage()
		pdf.document(doc, comp.Fields)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func (p *pdfDoc) titlePage(title, author string, img *core.CoverImage) {
	p.AddPage()
	p.Ln(30)
	p.SetFont("Helvetica", "B", 24)
	p.MultiCell(0, 11, p.tr(title), "", "C", false)
	p.Ln(4)
	p.SetFont("Helvetica", "", 14)
	p.MultiCell(0, 7, p.tr(author), "", "C", false)
	p.Ln(10)
	if img != nil {
		p.image(img.Data, img.MediaType, 120, true)
	}
}

func (p *pdfDoc) document(doc *core.NormalizedDocument, fields core.FieldSet) {
	p.SetFont("Helvetica", "B", 18)
	p.MultiCell(0, 8, p.tr(doc.Title), "", "L", false)
	p.Ln(3)

	if lines := core.MetadataLines(doc, fields); len(lines) > 0 {
		p.SetFont("Helvetica", "I", 9)
		p.SetTextColor(100, 100, 100)
		for _, l := range lines {
			p.MultiCell(0, 5, p.tr(l.Label+": "+l.Value), "", "L", false)
		}
		p.SetTextColor(0, 0, 0)
		p.Ln(4)
	}

	for _, blk := range doc.Blocks {
		p.block(doc, blk)
	}

	if len(doc.Footnotes) > 0 {
		p.Ln(4)
		renderHeading(p, "Footnotes", 4)
		p.SetFont("Helvetica", "", 9)
		for _, fn := range doc.Footnotes {
			p.MultiCell(0, 4.5, p.tr("["+strconv.Itoa(fn.Number)+"] "+fn.Text), "", "L", false)
		}
	}
}

func (p *pdfDoc) block(doc *core.NormalizedDocument, blk core.Block) {
	switch blk.Kind {
	case core.BlockHeading:
		renderHeading(p, textFootnoteRefs(doc, blk.Text), blk.Level+1)
	case core.BlockParagraph:
		p.SetFont("Helvetica", "", 10)
		p.MultiCell(0, 5, p.tr(textFootnoteRefs(doc, blk.Text)), "", "L", false)
		p.Ln(2)
	case core.BlockBlockquote:
		p.SetFont("Helvetica", "I", 10)
		left, _, _, _ := p.GetMargins()
		p.SetLeftMargin(left + 8)
		p.SetX(left + 8)
		p.MultiCell(0, 5, p.tr(textFootnoteRefs(doc, blk.Text)), "", "L", false)
		p.SetLeftMargin(left)
		p.Ln(2)
	case core.BlockList:
		p.SetFont("Helvetica", "", 10)
		for i, item := range blk.Items {
			marker := "• "
			if blk.Ordered {
				marker = strconv.Itoa(i+1) + ". "
			}
			p.MultiCell(0, 5, p.tr(marker+textFootnoteRefs(doc, item.Text)), "", "L", false)
		}
		p.Ln(2)
	case core.BlockCode:
		p.SetFont("Courier", "", 9)
		p.SetFillColor(245, 245, 245)
		p.MultiCell(0, 4.5, p.tr(blk.Text), "", "L", true)
		p.Ln(2)
	case core.BlockImage:
		img := blk.Image
		if img.Embedded() && p.image(img.Data, img.MediaType, 0, false) {
			if img.Caption != "" {
				p.SetFont("Helvetica", "I", 8)
				p.MultiCell(0, 4, p.tr(img.Caption), "", "C", false)
			}
			p.Ln(2)
			return
		}
		p.SetFont("Helvetica", "I", 9)
		p.SetTextColor(120, 120, 120)
		p.MultiCell(0, 5, p.tr("[Image: "+img.Label()+"]"), "", "L", false)
		p.SetTextColor(0, 0, 0)
		p.Ln(2)
	}
}

// image places data at the current position, scaled to fit the text width
// (or maxWidth when positive). It reports false when gofpdf cannot decode it.
func (p *pdfDoc) image(data []byte, mediaType string, maxWidth float64, center bool) bool {
	imageType, ok := pdfImageTypes[mediaType]
	if !ok {
		return false
	}
	p.images++
	name := "img" + strconv.Itoa(p.images)
	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := p.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if !p.Ok() || info == nil {
		p.ClearError()
		return false
	}

	pageW, _ := p.GetPageSize()
	left, _, right, _ := p.GetMargins()
	avail := pageW - left - right
	if maxWidth > 0 && maxWidth < avail {
		avail = maxWidth
	}
	w := info.Width()
	if w <= 0 || w > avail {
		w = avail
	}
	x := left
	if center {
		x = (pageW - w) / 2
	}
	p.ImageOptions(name, x, -1, w, 0, true, opts, 0, "")
	return p.Ok()
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(p *pdfDoc, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	p.Ln(4)
	p.SetFont("Helvetica", "B", size)
	p.MultiCell(0, size*0.6, p.tr(strings.TrimSpace(text)), "", "L", false)
	p.Ln(2)
}
