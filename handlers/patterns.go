// patterns.go - text grammar inspection and reload routes
package handlers

import (
	"net/http"

	"playmap/services"

	"github.com/go-chi/chi/v5"
)

// SetupPatternRoutes configures pattern grammar endpoints
func SetupPatternRoutes(router chi.Router) {
	// Current grammar, for operator visibility
	router.Get("/patterns", func(w http.ResponseWriter, r *http.Request) {
		ps := services.CurrentPatterns()
		writeJSON(w, http.StatusOK, map[string]any{
			"source":   ps.Source,
			"patterns": ps.Describe(),
		})
	})

	// Force a re-read of the pattern file
	router.Post("/patterns/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := services.ReloadPatterns(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "reloaded",
			"source": services.CurrentPatterns().Source,
		})
	})
}
