// Package export превращает последний отправленный отчёт в файлы для пользователя.
// Все функции работают только с данными в памяти и никуда не обращаются по сети.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/go-pdf/fpdf"
	"github.com/shenikar/ecowatch_reports/internal/models"
)

// Format - формат сгенерированного документа
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

const title = "EcoWatch incident report"

// JSON пишет отчёт как JSON-документ
func JSON(w io.Writer, r models.Receipt) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Text пишет построчную текстовую сводку
func Text(w io.Writer, r models.Receipt) error {
	var b strings.Builder
	b.WriteString(title + "\n")
	if r.ReportID != "" {
		fmt.Fprintf(&b, "Report ID: %s\n", r.ReportID)
	}
	fmt.Fprintf(&b, "Type: %s\n", r.Type)
	fmt.Fprintf(&b, "Submitted: %s\n", formatTime(r.SubmittedAt))
	fmt.Fprintf(&b, "Location: %s\n", formatLocation(r.Location))
	if r.LocationQuery != "" {
		fmt.Fprintf(&b, "Location query: %s\n", r.LocationQuery)
	}
	if r.Image != nil {
		fmt.Fprintf(&b, "Image: %s\n", formatAttachment(r.Image))
	}
	if r.Audio != nil {
		fmt.Fprintf(&b, "Audio: %s\n", formatAttachment(r.Audio))
	}
	b.WriteString("Description:\n")
	b.WriteString(r.Description)
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// pdfRenderer подменяется в тестах
var pdfRenderer = PDF

// Document пишет PDF, а если его не удалось собрать, HTML-страницу для печати
func Document(w io.Writer, r models.Receipt) (Format, error) {
	var buf bytes.Buffer
	if err := pdfRenderer(&buf, r); err == nil {
		_, err = w.Write(buf.Bytes())
		return FormatPDF, err
	}
	return FormatHTML, PrintHTML(w, r)
}

// PDF пишет одностраничный документ без вложений
func PDF(w io.Writer, r models.Receipt) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("ecowatch-reporter", true)
	pdf.SetCreationDate(r.SubmittedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, row := range summaryRows(r) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(40, 7, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 7, tr(row[1]), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Description", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(r.Description), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: could not build pdf: %w", err)
	}
	return pdf.Output(w)
}

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
th { text-align: left; padding-right: 1rem; }
p.description { white-space: pre-wrap; }
@media print { button { display: none; } }
</style>
</head>
<body onload="window.print()">
<h1>{{.Title}}</h1>
<table>
{{range .Rows}}<tr><th>{{index . 0}}</th><td>{{index . 1}}</td></tr>
{{end}}</table>
<h2>Description</h2>
<p class="description">{{.Description}}</p>
<button onclick="window.print()">Print</button>
</body>
</html>
`))

// PrintHTML пишет страницу для печати с теми же полями, что и PDF
func PrintHTML(w io.Writer, r models.Receipt) error {
	return printTemplate.Execute(w, struct {
		Title       string
		Rows        [][2]string
		Description string
	}{
		Title:       title,
		Rows:        summaryRows(r),
		Description: r.Description,
	})
}

// summaryRows - поля документа; вложения сюда не входят
func summaryRows(r models.Receipt) [][2]string {
	rows := [][2]string{
		{"Type", string(r.Type)},
		{"Submitted", formatTime(r.SubmittedAt)},
		{"Location", formatLocation(r.Location)},
	}
	if r.LocationQuery != "" {
		rows = append(rows, [2]string{"Place", r.LocationQuery})
	}
	if r.ReportID != "" {
		rows = append(rows, [2]string{"Report ID", r.ReportID})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatLocation(loc *models.Location) string {
	if loc == nil {
		return "not provided"
	}
	s := strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
	if loc.Accuracy != nil {
		s += " (accuracy " + strconv.FormatFloat(*loc.Accuracy, 'f', 0, 64) + " m)"
	}
	return s
}

func formatAttachment(a *models.AttachmentInfo) string {
	s := a.Filename
	if a.ContentType != "" {
		s += " (" + a.ContentType + ")"
	}
	return s + ", " + units.HumanSize(float64(a.Size))
}
