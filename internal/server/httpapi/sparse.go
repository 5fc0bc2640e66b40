package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// sparseIndex serves the raw crate index tree read-only over HTTP, so
// clients can resolve dependencies without cloning the git repository. Only
// regular files inside the tree are reachable; the git metadata directory is
// not.
func (s *Server) sparseIndex(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")

	clean := filepath.Clean("/" + rel)
	if strings.HasPrefix(clean, "/.git") {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(s.indexTreePath, clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, full)
}
