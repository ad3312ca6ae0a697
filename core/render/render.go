package render

import (
	"fmt"

	"github.com/gaurav-prasanna/postpress/core"
)

// New returns the packager for format.
func New(format core.Format, settings core.EngineSettings) (core.Renderer, error) {
	switch format {
	case core.FormatEPUB:
		return NewEPUBRenderer(settings.Language), nil
	case core.FormatTXT:
		return NewTextRenderer(), nil
	case core.FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use epub, txt or pdf)", format)
	}
}
