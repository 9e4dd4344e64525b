package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/bryanwahyu/bone-ager/internal/domain/assessment"
	"github.com/bryanwahyu/bone-ager/internal/domain/patient"
)

const (
	DefaultTitle        = "Bone-Ager Report"
	DefaultAgeUnitLabel = "years"

	cellWidth  = 200
	cellHeight = 10
)

// PDFComposer lays out the single-page report.
type PDFComposer struct {
	Title        string
	AgeUnitLabel string
	// Compress toggles stream compression; tests turn it off to read the text back.
	Compress bool
}

func NewPDFComposer(title, ageUnitLabel string) *PDFComposer {
	if title == "" {
		title = DefaultTitle
	}
	if ageUnitLabel == "" {
		ageUnitLabel = DefaultAgeUnitLabel
	}
	return &PDFComposer{Title: title, AgeUnitLabel: ageUnitLabel, Compress: true}
}

func (c *PDFComposer) ContentType() string { return "application/pdf" }

// Lines returns the report body in print order, blank line included.
func (c *PDFComposer) Lines(r *assessment.Report) []string {
	return []string{
		c.Title,
		"",
		fmt.Sprintf("Patient Name: %s", r.Patient.Name),
		fmt.Sprintf("Gender: %s", r.Patient.Gender),
		fmt.Sprintf("Estimated Bone Age: %.1f %s", r.Estimate.Months, c.AgeUnitLabel),
	}
}

// CheckRecord rejects names outside cp1252, the code page of the core fonts.
// fpdf would otherwise print every such rune as '.'.
func (c *PDFComposer) CheckRecord(rec patient.Record) error {
	return checkText("patient name", rec.Name)
}

func checkText(field, s string) error {
	if _, err := charmap.Windows1252.NewEncoder().String(s); err != nil {
		return fmt.Errorf("%w: %s has characters outside cp1252", assessment.ErrUnrenderable, field)
	}
	return nil
}

func (c *PDFComposer) Compose(ctx context.Context, r *assessment.Report) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines := c.Lines(r)
	for _, line := range lines {
		if err := checkText("report line", line); err != nil {
			return nil, err
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(c.Compress)
	pdf.SetTitle(c.Title, true)
	pdf.SetSubject(string(r.AssessmentID), true)
	if !r.CreatedAt.IsZero() {
		pdf.SetCreationDate(r.CreatedAt)
		pdf.SetModificationDate(r.CreatedAt)
	}
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.CellFormat(cellWidth, cellHeight, tr(lines[0]), "", 1, "C", false, 0, "")
	pdf.Ln(cellHeight)
	for _, line := range lines[2:] {
		pdf.CellFormat(cellWidth, cellHeight, tr(line), "", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

var _ assessment.RecordChecker = (*PDFComposer)(nil)

var _ assessment.Composer = (*PDFComposer)(nil)
