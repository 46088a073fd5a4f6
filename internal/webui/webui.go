// Package webui embeds the static scan form served at the root path.
package webui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:static
var files embed.FS

// Handler serves the embedded form assets.
func Handler() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// The embedded tree is fixed at build time; a missing subdirectory is
		// a packaging bug.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
