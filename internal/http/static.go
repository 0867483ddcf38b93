package http

import (
	"io/fs"
	"net/http"

	"finset/internal/log"
	"finset/internal/middleware/security"
	appweb "finset/web"
)

const staticMaxAge = 3600

// mountStatic serves /static/* from the embedded FS and answers every other
// GET with the dashboard shell.
func (s *Server) mountStatic(mux *http.ServeMux) {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
		return
	}

	files := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(files))
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, sub, "index.html")
	})
}
