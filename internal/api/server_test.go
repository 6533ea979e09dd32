package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docverify/internal/history"
	"git.home.luguber.info/inful/docverify/internal/verifier"
)

type staticStatus struct{ report *verifier.Report }

func (s staticStatus) Last() *verifier.Report { return s.report }

func get(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	}
	return w, resp
}

func TestAPIServerCreation(t *testing.T) {
	srv := NewServer(":8080", nil)
	if srv == nil {
		t.Fatal("expected server, got nil")
	}
	if srv.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %s", srv.Addr)
	}
	if srv.server == nil {
		t.Fatal("expected http.Server, got nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(":8080", nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if body := w.Body.String(); body != `{"status":"healthy"}` {
		t.Errorf("expected healthy response, got %s", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	w, resp := get(t, NewServer(":0", staticStatus{}).Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.False(t, resp.Success)

	report := &verifier.Report{ID: "run-1", Outcome: verifier.OutcomePassed}
	w, resp = get(t, NewServer(":0", staticStatus{report}).Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "run-1", data["id"])
	require.Equal(t, "passed", data["outcome"])
}

func TestRunsEndpoints(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	require.NoError(t, store.Save(context.Background(), &verifier.Report{ID: "r1", Project: "p", StartedAt: now, FinishedAt: now, Outcome: verifier.OutcomeFailed}))

	h := NewServer(":0", staticStatus{}, WithHistory(store)).Handler()

	w, resp := get(t, h, http.MethodGet, "/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	list, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)

	w, _ = get(t, h, http.MethodGet, "/runs?limit=abc")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = get(t, h, http.MethodGet, "/runs/r1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "failed", resp.Data.(map[string]any)["outcome"])

	w, _ = get(t, h, http.MethodGet, "/runs/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerEndpoint(t *testing.T) {
	var reasons []string
	trigger := func(reason string) bool {
		reasons = append(reasons, reason)
		return len(reasons) == 1
	}
	h := NewServer(":0", staticStatus{}, WithTrigger(trigger)).Handler()

	w, resp := get(t, h, http.MethodPost, "/runs")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "queued", resp.Data.(map[string]any)["status"])

	_, resp = get(t, h, http.MethodPost, "/runs")
	require.Equal(t, "already queued", resp.Data.(map[string]any)["status"])
	require.Equal(t, []string{"api", "api"}, reasons)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("docverify_up 1\n"))
	})
	h := NewServer(":0", staticStatus{}, WithMetrics(metrics)).Handler()

	w, _ := get(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "docverify_up 1")

	// Routes are only mounted when configured.
	w, _ = get(t, NewServer(":0", staticStatus{}).Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, w.Code)
}
