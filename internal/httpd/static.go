package httpd

import (
	"net/http"
	"path/filepath"
	"strings"
)

// RegisterStaticDir serves fsPath under urlPrefix, rejecting any
// resolved path that escapes fsPath after canonicalization.
func (r *Router) RegisterStaticDir(urlPrefix, fsPath string) {
	base, err := filepath.Abs(fsPath)
	if err != nil {
		r.log.Error("static dir base path invalid", "path", fsPath, "error", err)
		return
	}
	fileServer := http.StripPrefix(urlPrefix, http.FileServer(http.Dir(base)))

	r.mux.PathPrefix(urlPrefix).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		target := filepath.Join(base, strings.TrimPrefix(req.URL.Path, urlPrefix))
		abs, err := filepath.Abs(target)
		if err != nil || (abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator))) {
			http.NotFound(w, req)
			return
		}
		fileServer.ServeHTTP(w, req)
	})
}
