package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/revision"
)

type createRevisionBody struct {
	Comment         string  `json:"comment"`
	PolicyID        *string `json:"policy_id"`
	DynamicPolicyID *string `json:"dynamic_policy_id"`
}

// mountRevisions registers /revisions CRUD (list/get/create) and the
// raw_config retrieval endpoint of spec §6. Revisions are immutable once
// created (spec §4.7), so there is no update route.
func mountRevisions(r *mux.Router, authMW func(string) mux.MiddlewareFunc, d Deps) {
	read := authMW("revisions:read")
	write := authMW("revisions:write")

	r.Handle("/revisions", read(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		items, total, err := d.Store.ListRevisions(parseListFilter(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse[any]{Items: toAnySlice(items), Total: total})
	}))).Methods(http.MethodGet)

	r.Handle("/revisions/{id}", read(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rev, err := d.Store.GetRevision(mux.Vars(req)["id"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rev)
	}))).Methods(http.MethodGet)

	r.Handle("/revisions", write(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body createRevisionBody
		if err := decodeJSON(req, &body); err != nil {
			writeError(w, apperr.Invalid("body", "malformed JSON: "+err.Error()))
			return
		}
		rev, err := d.Revisions.Create(revision.CreateRequest{
			Comment:         body.Comment,
			PolicyID:        body.PolicyID,
			DynamicPolicyID: body.DynamicPolicyID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rev)
	}))).Methods(http.MethodPost)

	r.Handle("/revisions/{id}/raw_config", read(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		targetID := req.URL.Query().Get("target_id")
		if targetID == "" {
			writeError(w, apperr.Invalid("target_id", "target_id query parameter is required"))
			return
		}
		text, err := d.Revisions.RawConfig(mux.Vars(req)["id"], targetID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeText(w, http.StatusOK, text)
	}))).Methods(http.MethodGet)

	// Pull-auth variant: a device fetches its own config using the
	// BLAKE2b-16 hash as a capability token (spec §6, §8 scenario 6), no
	// bearer token required.
	r.HandleFunc("/revisions/{id}/raw_config/{target_id}/{hash}", func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		text, err := d.Revisions.RawConfigByHash(vars["id"], vars["target_id"], vars["hash"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeText(w, http.StatusOK, text)
	}).Methods(http.MethodGet)
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}
