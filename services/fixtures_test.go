package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/store"
)

// jsonBackend поднимает стаб-бэкенд из статических JSON-ответов.
func jsonBackend(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAPIAndCache(t *testing.T, backendURL string) (*apiclient.Client, *cache.Store) {
	t.Helper()
	api := apiclient.New(backendURL, nil, quietLogger())
	persist := store.NewFileSnapshotStore(filepath.Join(t.TempDir(), "snapshot.json"))
	return api, cache.New(api, persist, nil, quietLogger())
}

func roleCtx(role models.Role, opts ...func(*models.Session)) context.Context {
	sess := &models.Session{
		InventoID: "INV1",
		Email:     "user@college.edu",
		Role:      role,
		Onboarded: true,
		Token:     "backend-token",
	}
	for _, opt := range opts {
		opt(sess)
	}
	return apiclient.WithSession(context.Background(), sess)
}
