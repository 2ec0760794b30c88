package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/participa/internal/api/v1"
)

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterRecordRoutes(api, deps.Ledger)
	v1.RegisterReportRoutes(api, deps.Reports)
}

// reportFileHandler serves exported reports by bare file name. Anything that
// could escape dir is refused before touching the filesystem.
func reportFileHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		// Hidden names cover in-progress export temp files.
		if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}

		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		http.ServeFile(w, r, path)
	}
}
