// Package api implements the REST surface of spec §6 on top of
// gorilla/mux: CRUD for every authoring entity, usage queries, the test
// runner, revision lifecycle, and the OAuth2 token endpoint.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/DataDog/netacld/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps the apperr taxonomy (spec §7) onto the HTTP status codes
// and response shapes spec §6 requires: a central mapping table rather than
// ad hoc status choices scattered across handlers.
func writeError(w http.ResponseWriter, err error) {
	ae, ok := err.(*apperr.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	switch ae.Kind {
	case apperr.KindNotFound, apperr.KindNoDeployers:
		status := http.StatusNotFound
		writeJSON(w, status, map[string]string{"detail": ae.Message})
	case apperr.KindInvalid:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": ae.Fields})
	case apperr.KindConflict, apperr.KindReferentialInUse, apperr.KindCycleDetected, apperr.KindInsufficientCoverage:
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": ae.Error()})
	case apperr.KindUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": ae.Message})
	case apperr.KindForbidden:
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": ae.Message})
	case apperr.KindRemoteConnectFailed, apperr.KindRemoteCommandFailed:
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": ae.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": ae.Error()})
	}
}
