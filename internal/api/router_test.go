package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netacld/internal/auth"
	"github.com/DataDog/netacld/internal/compile"
	"github.com/DataDog/netacld/internal/dispatch"
	"github.com/DataDog/netacld/internal/model"
	"github.com/DataDog/netacld/internal/queue"
	"github.com/DataDog/netacld/internal/revision"
	"github.com/DataDog/netacld/internal/store/memstore"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	st := memstore.New()
	a := auth.New(auth.LDAPConfig{}, []byte("test-secret"), time.Minute)
	token, err := a.Issue(auth.User{Username: "tester"})
	require.NoError(t, err)

	rdb := newMiniredisClient(t)
	q := queue.New(rdb)

	deps := Deps{
		Store:      st,
		Auth:       a,
		Revisions:  revision.New(st, compile.TextRenderer{}, log),
		Dispatcher: dispatch.New(st, q),
		Log:        log,
	}
	return NewRouter(deps), token
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetNetworkRequiresScope(t *testing.T) {
	h, token := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/networks", "", map[string]any{"Name": "corp-net"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/networks", token, map[string]any{"Name": "corp-net"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Network
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "corp-net", created.Name)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/networks/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUnknownNetworkReturns404(t *testing.T) {
	h, token := newTestRouter(t)
	rec := doRequest(t, h, http.MethodGet, "/api/v1/networks/does-not-exist", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNetworksReturnsEnvelope(t *testing.T) {
	h, token := newTestRouter(t)
	doRequest(t, h, http.MethodPost, "/api/v1/networks", token, map[string]any{"Name": "a"})
	doRequest(t, h, http.MethodPost, "/api/v1/networks", token, map[string]any{"Name": "b"})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/networks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse[model.Network]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)
}
