package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// mountUsage registers the three usage endpoints of spec §6
// (/policies/{id}/usage, /networks/{id}/usage, /services/{id}/usage):
// ids of objects transitively referencing the subject.
func mountUsage(r *mux.Router, authMW func(string) mux.MiddlewareFunc, d Deps) {
	mount := func(path, kind, scope string) {
		handler := authMW(scope + ":read")(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := mux.Vars(req)["id"]
			ids, err := d.Store.UsageOf(kind, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string][]string{"usage": ids})
		}))
		r.Handle(path, handler).Methods(http.MethodGet)
	}

	mount("/policies/{id}/usage", "policy", "policies")
	mount("/networks/{id}/usage", "network", "networks")
	mount("/services/{id}/usage", "service", "services")
}
