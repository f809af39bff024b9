package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const spaIndex = "index.html"

// spaFileServer serves the front-end bundle from assets. Client-side routes
// such as /chat or /documents resolve to index.html; a missing file with an
// extension is a real 404 so broken asset links stay visible.
func spaFileServer(assets fs.FS) http.Handler {
	fileServer := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = spaIndex
		}

		info, err := fs.Stat(assets, name)
		switch {
		case err == nil && !info.IsDir():
			fileServer.ServeHTTP(w, r)
			return
		case path.Ext(name) != "":
			http.NotFound(w, r)
			return
		}

		// index.html changes with every deploy; hashed assets do not.
		w.Header().Set("Cache-Control", "no-cache")
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
