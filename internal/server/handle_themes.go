package server

import (
	"net/http"

	"github.com/ecoquest/ecoquest/internal/catalog"
)

func handleThemes(c *catalog.Catalog) http.HandlerFunc {
	themes := c.Themes()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, themes)
	}
}
