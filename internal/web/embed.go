package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed static/*
var embeddedStatic embed.FS

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(embeddedTemplates, "templates/*.tmpl")
}

// StaticFS exposes the stylesheet bundle served under /static.
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}
