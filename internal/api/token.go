package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/DataDog/netacld/internal/apperr"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// mountToken registers the OAuth2 password grant (spec §6's /token) and a
// /me endpoint for verifying whoever holds the resulting bearer token.
func mountToken(r *mux.Router, d Deps) {
	r.HandleFunc("/token", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			writeError(w, apperr.Invalid("body", "malformed form body"))
			return
		}
		username := req.PostForm.Get("username")
		password := req.PostForm.Get("password")
		if username == "" || password == "" {
			writeError(w, apperr.Invalid("username", "username and password are required"))
			return
		}

		user, ok, err := d.Auth.Authenticate(username, password)
		if err != nil {
			writeError(w, apperr.RemoteConnectFailed("ldap: "+err.Error()))
			return
		}
		if !ok {
			writeError(w, apperr.Unauthorized("incorrect username or password"))
			return
		}

		token, err := d.Auth.Issue(user)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
	}).Methods(http.MethodPost)

	r.HandleFunc("/me", func(w http.ResponseWriter, req *http.Request) {
		header := req.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, apperr.Unauthorized("missing bearer token"))
			return
		}
		claims, err := d.Auth.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeError(w, apperr.Unauthorized("invalid or expired token"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"username":  claims.Username,
			"email":     claims.Email,
			"full_name": claims.FullName,
			"scopes":    claims.Scopes,
		})
	}).Methods(http.MethodGet)
}
