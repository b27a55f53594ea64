package handlers

import (
	"net/http"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/httpserver/mw"
)

// GetPreferences GET /api/me/preferences
func GetPreferences(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := d.Accounts.Preferences(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}

// PutPreferences PUT /api/me/preferences, 整体覆盖
func PutPreferences(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var prefs domain.UserPreferences
		if err := decodeJSON(w, r, &prefs); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if err := d.Accounts.UpdatePreferences(r.Context(), mw.UserID(r.Context()), prefs); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}
