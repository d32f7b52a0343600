package server

import (
	"net/http"

	"extfilter/internal/app/version"
)

// getVersion reports build metadata. It is never cached so deploys show up at once.
func getVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, version.GetInfo())
}
