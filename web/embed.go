package web

import (
	"embed"
	"io/fs"
)

// TemplatesFS holds the dashboard page, partials and modals.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Static returns the assets served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
