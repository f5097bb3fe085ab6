package service

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticContent embed.FS

// templates holds all pages, each named after its file.
var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"value": model.Value,
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
}).ParseFS(templateFiles, "templates/*.html"))

func staticFiles() http.FileSystem {
	sub, err := fs.Sub(staticContent, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
