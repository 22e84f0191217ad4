package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded HTML pages with their helper functions.
func Templates() *template.Template {
	funcMap := template.FuncMap{
		"min": func(a, b int) int {
			return min(a, b)
		},
		"percent": func(part, total int) int {
			if total == 0 {
				return 0
			}
			return part * 100 / total
		},
		"selected": func(sel *string, key string) bool {
			return sel != nil && *sel == key
		},
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}
