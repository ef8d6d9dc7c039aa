package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"denuncias/api/internal/complaint"
	"denuncias/api/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

var statusLabels = map[complaint.Status]string{
	complaint.StatusReceived:   "Recibida",
	complaint.StatusInProgress: "En progreso",
	complaint.StatusResolved:   "Resuelta",
	complaint.StatusRejected:   "Rechazada",
}

var rangeLabels = map[string]string{
	report.RangeToday:      "Hoy",
	report.RangeLast7Days:  "Últimos 7 días",
	report.RangeLast30Days: "Últimos 30 días",
	report.RangeOlder:      "Más antiguas",
}

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"statusLabel": func(value string) string {
			if label, ok := statusLabels[complaint.Status(value)]; ok {
				return label
			}
			return value
		},
		"rangeLabel": func(key string) string {
			if label, ok := rangeLabels[key]; ok {
				return label
			}
			return key
		},
		"groupLabel": func(label string) string {
			if label == report.Unspecified {
				return "Sin especificar"
			}
			return label
		},
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds what the report template renders.
type TemplateData struct {
	Title  string
	Report report.Report
	Rows   []TemplateRow
}

type TemplateRow struct {
	Folio        string
	Title        string
	Status       string
	CategoryName string
	District     string
	CreatedAt    time.Time
	DaysElapsed  int
	Urgency      string
}

func templateData(title string, rep report.Report) TemplateData {
	rows := make([]TemplateRow, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		days := complaint.DaysElapsed(row.CreatedAt, rep.GeneratedAt)
		rows = append(rows, TemplateRow{
			Folio:        row.Folio,
			Title:        row.Title,
			Status:       string(row.Status),
			CategoryName: row.CategoryName,
			District:     row.District,
			CreatedAt:    row.CreatedAt,
			DaysElapsed:  days,
			Urgency:      string(complaint.Classify(row.Status, days)),
		})
	}
	return TemplateData{Title: title, Report: rep, Rows: rows}
}

// RenderReportHTML renders the report with the embedded template.
func RenderReportHTML(title string, rep report.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, templateData(title, rep)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>Total: {{.Report.Totals.Total}}</p>
  <table>
  {{range .Rows}}<tr><td>{{.Folio}}</td><td>{{.Title}}</td><td>{{statusLabel .Status}}</td></tr>{{end}}
  </table>
</body>
</html>`
