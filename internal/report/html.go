package report

import (
	"fmt"
	"html/template"
	"io"
)

var pageTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"score": func(s Score) string { return formatScore(s, "n/a") },
	// Diff markup is escaped by the renderer that produced it.
	"trusted": func(s string) template.HTML { return template.HTML(s) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Name}}{{.Name}} - {{end}}alteval report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 0.25em 0.75em; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.diff { font-family: monospace; line-height: 1.6; margin-bottom: 2em; }
.token { padding: 0 0.1em; }
.hit { color: #222; }
.ref { background: #fdd; text-decoration: line-through; }
.hyp { background: #dfd; }
.ref-case { background: #ffd; text-decoration: line-through; }
.hyp-case { background: #ffd; }
.token-line_break, .token-section_break { color: #888; }
</style>
</head>
<body>
<h1>{{if .Name}}{{.Name}}{{else}}alteval report{{end}}</h1>
<h2>Metrics</h2>
<table>
<tr><th>Metric</th><th>Value</th></tr>
{{- range .MetricNames}}
<tr><td>{{.}}</td><td>{{score (index $.Metrics .)}}</td></tr>
{{- end}}
</table>
{{- if .Items}}
<h2>Items</h2>
<table>
<tr><th>Item</th><th>Language</th><th>Words</th><th>Hits</th><th>Sub</th><th>Del</th><th>Ins</th><th>Case</th><th>WER</th></tr>
{{- range $i, $it := .Items}}
<tr><td>{{if $it.ID}}{{$it.ID}}{{else}}{{$i}}{{end}}</td><td>{{$it.Language}}</td><td>{{$it.ReferenceWords}}</td><td>{{$it.Hits}}</td><td>{{$it.Substitutions}}</td><td>{{$it.Deletions}}</td><td>{{$it.Insertions}}</td><td>{{$it.CaseErrors}}</td><td>{{score $it.WER}}</td></tr>
{{- end}}
</table>
{{- range $i, $it := .Items}}
{{- if $it.ErrorsHTML}}
<h3>{{if $it.ID}}{{$it.ID}}{{else}}Item {{$i}}{{end}}</h3>
<div class="diff">{{trusted $it.ErrorsHTML}}</div>
{{- end}}
{{- end}}
{{- end}}
</body>
</html>
`))

// WriteHTML writes d as a standalone HTML page. Per-item diffs are embedded
// with CSS for the hit, ref, hyp, ref-case and hyp-case roles.
func WriteHTML(w io.Writer, d *Document) error {
	if err := pageTmpl.Execute(w, d); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}
