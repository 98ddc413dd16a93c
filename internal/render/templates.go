package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"codex/api/internal/store"
)

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(documentHTML))

type templateField struct {
	Name  string
	Value string
}

type templateData struct {
	Title      string
	Type       string
	SystemName string
	Featured   bool
	Fields     []templateField
	UpdatedAt  time.Time
}

// RenderHTML flattens the document payload into a printable sheet. Nested
// payload values are rendered as compact JSON rather than dropped.
func RenderHTML(doc store.Document, systemName string) (string, error) {
	fields := make([]templateField, 0)
	if len(doc.Payload) > 0 {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(doc.Payload, &payload); err != nil {
			return "", fmt.Errorf("decode payload: %w", err)
		}
		for name, raw := range payload {
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				value = string(raw)
			}
			fields = append(fields, templateField{Name: name, Value: value})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	}

	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, templateData{
		Title:      doc.Title,
		Type:       doc.Type,
		SystemName: systemName,
		Featured:   doc.Featured,
		Fields:     fields,
		UpdatedAt:  doc.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("render document template: %w", err)
	}
	return buf.String(), nil
}

const documentHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; color: #1a1a1a; margin: 0; }
  .sheet { padding: 24px 32px; }
  h1 { font-size: 26px; margin-bottom: 4px; }
  .meta { color: #666; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; }
  .badge { display: inline-block; border: 1px solid #b8860b; color: #b8860b; padding: 1px 8px; border-radius: 3px; font-size: 11px; }
  table { width: 100%; border-collapse: collapse; margin-top: 18px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; font-size: 13px; }
  th { width: 30%; color: #444; font-weight: normal; text-transform: capitalize; }
  .footer { margin-top: 28px; color: #999; font-size: 11px; }
</style>
</head>
<body>
<div class="sheet">
  <h1>{{.Title}}</h1>
  <div class="meta">{{lower .Type}} &middot; {{.SystemName}}{{if .Featured}} &middot; <span class="badge">featured</span>{{end}}</div>
  <table>
    {{range .Fields}}<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
    {{end}}
  </table>
  <div class="footer">Last updated {{formatDate .UpdatedAt "January 2, 2006"}}</div>
</div>
</body>
</html>`
