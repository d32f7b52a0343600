package server

import "net/http"

// getConnectionTest lets the frontend check that the backend is reachable.
func getConnectionTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Backend connection successful!",
		"status":  "OK",
	})
}
