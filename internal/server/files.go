package server

import (
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const indexFile = "index.html"

// contentTypes overrides sniffing for extensions it gets wrong.
var contentTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".js":   "text/javascript; charset=utf-8",
	".svg":  "image/svg+xml",
}

// handleFile serves the site. "/" is the root index, directories redirect to
// their slash form and then serve their index page.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.opts.Site == nil {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := path.Clean("/" + r.URL.Path)
	info, err := s.opts.Site.Stat(name)
	if err != nil {
		notFound(w)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = path.Join(name, indexFile)
	}

	data, err := afero.ReadFile(s.opts.Site, name)
	if err != nil {
		if os.IsNotExist(err) {
			notFound(w)
			return
		}
		s.errors.WriteErrorResponse(w, r, err)
		return
	}

	ext := strings.ToLower(path.Ext(name))
	if ext == ".html" {
		s.writeHTML(w, string(data), true)
		return
	}
	if ct, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write(data)
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}
