package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/edusonrisas/academia-api/internal/models"
)

// SchoolHeader carries the institution lines printed on every document.
type SchoolHeader struct {
	Name   string
	Slogan string
	Phone  string
}

// ReportCardData is everything the renderer needs for one student document.
type ReportCardData struct {
	StudentName  string
	CourseName   string
	PeriodName   string
	PeriodIndex  int
	Year         int
	Document     models.ReportCardDocument
	SubjectNames map[string]string
	Comments     string
	GeneratedBy  string
	Rank         int
	Average      *float64
	Tier         models.PerformanceTier
	Verdict      models.Verdict
}

// ReportCardPDF renders report cards into PDF documents.
type ReportCardPDF struct {
	header SchoolHeader
}

// NewReportCardPDF constructs the renderer.
func NewReportCardPDF(header SchoolHeader) *ReportCardPDF {
	return &ReportCardPDF{header: header}
}

// Render produces the PDF bytes for one report card.
func (e *ReportCardPDF) Render(data ReportCardData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 7, tr(strings.ToUpper(e.header.Name)), "", 1, "C", false, 0, "")
	if e.header.Slogan != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%q", e.header.Slogan)), "", 1, "C", false, 0, "")
	}
	if e.header.Phone != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr("Teléfono: "+e.header.Phone), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, tr("BOLETÍN DE CALIFICACIONES"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Estudiante: %s   Curso: %s", data.StudentName, data.CourseName)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Período: %s   Año lectivo: %d", data.PeriodName, data.Year)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []string{"ASIGNATURA"}
	for i := 1; i <= data.PeriodIndex; i++ {
		headers = append(headers, fmt.Sprintf("P%d", i))
	}
	if data.PeriodIndex == 4 {
		headers = append(headers, "PF")
	}
	headers = append(headers, "DESEMPEÑO", "FL", "IH")

	subjectWidth := 60.0
	otherWidth := (190.0 - subjectWidth) / float64(len(headers)-1)

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(0, 0, 0)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		width := otherWidth
		if i == 0 {
			width = subjectWidth
		}
		pdf.CellFormat(width, 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 8)
	for _, subjectID := range sortedSubjectIDs(data.Document) {
		subject := data.Document[subjectID]
		name := data.SubjectNames[subjectID]
		if name == "" {
			name = subjectID
		}
		pdf.CellFormat(subjectWidth, 7, tr(name), "1", 0, "L", false, 0, "")
		for i := 1; i <= data.PeriodIndex; i++ {
			pdf.CellFormat(otherWidth, 7, formatScore(subject.PeriodAverage(i)), "1", 0, "C", false, 0, "")
		}
		if data.PeriodIndex == 4 {
			pdf.CellFormat(otherWidth, 7, formatScore(subject.Final), "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(otherWidth, 7, tr(string(subject.Tier)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(otherWidth, 7, fmt.Sprintf("%d", subject.Absences), "1", 0, "C", false, 0, "")
		pdf.CellFormat(otherWidth, 7, fmt.Sprintf("%d", subject.TaughtHours), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 9)
	summary := fmt.Sprintf("PUESTO No [ %d ]   PROM [ %s ]   DESEMPEÑO: %s",
		data.Rank, formatScore(data.Average), strings.ToUpper(string(data.Tier)))
	if data.PeriodIndex == 4 {
		summary += "   RESULTADO: " + verdictLabel(data.Verdict)
	}
	pdf.CellFormat(0, 7, tr(summary), "1", 1, "C", false, 0, "")

	if data.Comments != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 6, tr("Observaciones generales"), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(data.Comments), "1", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 7)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generado por %s - %s", data.GeneratedBy, time.Now().Format("02/01/2006 15:04"))), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report card pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderArchive bundles one PDF per report card into a zip archive.
func (e *ReportCardPDF) RenderArchive(cards []ReportCardData) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, card := range cards {
		pdfBytes, err := e.Render(card)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("boletin_%s_%s.pdf", sanitizeFilename(card.StudentName), sanitizeFilename(card.PeriodName))
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(pdfBytes); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close report card archive: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedSubjectIDs(doc models.ReportCardDocument) []string {
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatScore(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *value)
}

func verdictLabel(verdict models.Verdict) string {
	switch verdict {
	case models.VerdictPass:
		return "APROBADO"
	case models.VerdictFail:
		return "REPROBADO"
	default:
		return "SIN CALIFICAR"
	}
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-")
	return replacer.Replace(name)
}
