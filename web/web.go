// Package web embeds the browser chat widget served by the api package.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// Static returns the widget assets rooted at the static/ directory, with
// index.html at the top level.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static/ is compiled in; a failure here is a build defect.
		panic(err)
	}
	return sub
}
