package board

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/engine/internal/status"
)

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL, "").Healthcheck())
}

func TestHealthcheck_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.Error(t, New(srv.URL, "").Healthcheck())
}

func TestPostStatus(t *testing.T) {
	var got statusUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/units/17134/status", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "sekrit")
	require.NoError(t, c.PostStatus(context.Background(), "17134", status.Dispatched))
	assert.Equal(t, "17134", got.UnitID)
	assert.Equal(t, "ut", got.Status)
}

func TestSyncer_DeliversQueuedUpdates(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSyncer(New(srv.URL, ""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Start()

	require.NoError(t, s.SyncStatus(context.Background(), "17134", status.Assigned))
	require.NoError(t, s.SyncStatus(context.Background(), "17134", status.Dispatched))
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, paths, 2, "stop waits for queued updates to deliver")
}

func TestSyncer_FullQueueDrops(t *testing.T) {
	// Worker never started, so the queue only drains manually.
	s := NewSyncer(New("http://127.0.0.1:0", ""), slog.New(slog.NewTextHandler(io.Discard, nil)))

	var err error
	for i := 0; i <= syncQueueSize; i++ {
		err = s.SyncStatus(context.Background(), "17134", status.Assigned)
	}
	assert.Error(t, err, "overflow must surface as an error, not a block")
	assert.Equal(t, syncQueueSize, s.QueueLength())
}
