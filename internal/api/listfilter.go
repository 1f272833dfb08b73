package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/DataDog/netacld/internal/store"
)

// parseListFilter turns the query parameters spec §6 names
// (id, id__in, name, name__ilike, page, size, order_by) into a ListFilter.
func parseListFilter(r *http.Request) store.ListFilter {
	q := r.URL.Query()
	f := store.ListFilter{
		ID:        q.Get("id"),
		Name:      q.Get("name"),
		NameILike: q.Get("name__ilike"),
		OrderBy:   q.Get("order_by"),
	}
	if idIn := q.Get("id__in"); idIn != "" {
		f.IDIn = strings.Split(idIn, ",")
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = page
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil {
		f.Size = size
	}
	return f
}
