package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/store"
)

// listResponse is the paginated list envelope returned by every list
// endpoint.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// crud bundles the store operations for one resource type so its five
// standard REST routes (spec §6: "standard list/get/create/update/delete")
// can be registered in one call instead of five hand-written handlers.
type crud[T any] struct {
	create func(*T) error
	get    func(id string) (T, error)
	list   func(store.ListFilter) ([]T, int, error)
	update func(*T) error
	delete func(id string) error
	setID  func(*T, string)
	scope  string // resource name used for the read/write scope pair, e.g. "networks"
}

func (c crud[T]) mount(r *mux.Router, authMW func(scope string) mux.MiddlewareFunc, path string) {
	read := authMW(c.scope + ":read")
	write := authMW(c.scope + ":write")

	r.Handle(path, read(http.HandlerFunc(c.handleList))).Methods(http.MethodGet)
	r.Handle(path, write(http.HandlerFunc(c.handleCreate))).Methods(http.MethodPost)
	r.Handle(path+"/{id}", read(http.HandlerFunc(c.handleGet))).Methods(http.MethodGet)
	r.Handle(path+"/{id}", write(http.HandlerFunc(c.handleUpdate))).Methods(http.MethodPut)
	r.Handle(path+"/{id}", write(http.HandlerFunc(c.handleDelete))).Methods(http.MethodDelete)
}

func (c crud[T]) handleList(w http.ResponseWriter, r *http.Request) {
	f := parseListFilter(r)
	items, total, err := c.list(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Items: items, Total: total})
}

func (c crud[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, err := c.get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c crud[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, apperr.Invalid("body", "malformed JSON: "+err.Error()))
		return
	}
	if err := c.create(&item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (c crud[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, apperr.Invalid("body", "malformed JSON: "+err.Error()))
		return
	}
	c.setID(&item, id)
	if err := c.update(&item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c crud[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := c.delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
