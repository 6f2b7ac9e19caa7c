package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"orphanadmin/internal/application"
)

func renderPDF(a application.Application, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Orphan benefit application "+a.ID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "ORPHAN BENEFIT APPLICATION")
	pdf.Ln(12)

	if a.PhotoURL != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 5, tr("Photo: "+a.PhotoURL))
		pdf.Ln(7)
	}

	for _, s := range sections(a) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, tr(s.Title))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, f := range s.Fields {
			pdf.CellFormat(55, 6, tr(f.Label), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 6, tr(f.Value), "", "L", false)
		}
		pdf.Ln(3)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 6, "Generated "+generated.Format("2006-01-02 15:04 MST"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
