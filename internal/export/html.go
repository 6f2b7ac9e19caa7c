package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"orphanadmin/internal/application"
)

var page = template.Must(template.New("application").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Application {{.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; width: 100%; }
th { text-align: left; width: 30%; }
td, th { border-bottom: 1px solid #ddd; padding: 4px 8px; }
</style>
</head>
<body>
<h1>Orphan benefit application</h1>
{{if .PhotoURL}}<img src="{{.PhotoURL}}" alt="Applicant photo" width="120">{{end}}
{{range .Sections}}<h2>{{.Title}}</h2>
<table>
{{range .Fields}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}<footer>Generated {{.Generated}}</footer>
</body>
</html>
`))

func renderHTML(a application.Application, generated time.Time) ([]byte, error) {
	data := struct {
		ID        string
		PhotoURL  string
		Sections  []section
		Generated string
	}{
		ID:        a.ID,
		PhotoURL:  a.PhotoURL,
		Sections:  sections(a),
		Generated: generated.Format("2006-01-02 15:04 MST"),
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
