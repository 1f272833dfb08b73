package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// mountDeployments registers POST /revisions/{id}/deploy (spec §6, §8
// scenario 5) and GET /deployments/{id} for polling a deploy job's outcome.
func mountDeployments(r *mux.Router, authMW func(string) mux.MiddlewareFunc, d Deps) {
	write := authMW("deployments:write")
	read := authMW("deployments:read")

	r.Handle("/revisions/{id}/deploy", write(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rev, err := d.Store.GetRevision(mux.Vars(req)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		deployments, err := d.Dispatcher.Deploy(req.Context(), rev)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"deployments": deployments})
	}))).Methods(http.MethodPost)

	r.Handle("/deployments/{id}", read(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		dep, err := d.Store.GetDeployment(mux.Vars(req)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dep)
	}))).Methods(http.MethodGet)
}
