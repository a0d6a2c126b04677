package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightminer/pkg/config"
	"insightminer/pkg/dedup"
	"insightminer/pkg/logger"
	"insightminer/pkg/session"
)

type stubPipeline struct {
	lastURL    string
	lastFolder string
	ok         bool
	msg        string
}

func (p *stubPipeline) DownloadAndQueue(ctx context.Context, sourceURL, overrideFolder string) (bool, string) {
	p.lastURL = sourceURL
	p.lastFolder = overrideFolder
	return p.ok, p.msg
}

type stubSessions struct{ status session.Status }

func (s *stubSessions) Status() session.Status { return s.status }

type stubStats struct{ stats dedup.Stats }

func (s *stubStats) Stats() dedup.Stats { return s.stats }

func newTestServer(pipeline *stubPipeline) (*Server, *stubSessions, *stubStats) {
	sessions := &stubSessions{}
	stats := &stubStats{}
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: 8502}
	return New(cfg, pipeline, sessions, stats, logger.NewNopLogger()), sessions, stats
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(&stubPipeline{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	srv, sessions, stats := newTestServer(&stubPipeline{})
	sessions.status = session.Status{
		Active:       true,
		Username:     "tester",
		LastVerified: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	stats.stats = dedup.Stats{UniqueCount: 7, DuplicatesBlocked: 3}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Session.Active)
	assert.Equal(t, "tester", body.Session.Username)
	assert.Equal(t, 7, body.Dedup.UniqueCount)
	assert.Equal(t, 3, body.Dedup.DuplicatesBlocked)
}

func TestDownloadSuccess(t *testing.T) {
	pipeline := &stubPipeline{ok: true, msg: "Downloaded: instagram_1.mp4"}
	srv, _, _ := newTestServer(pipeline)

	body := strings.NewReader(`{"url": "https://www.instagram.com/reel/B/", "folder": "/tmp/custom"}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/download", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "message": "Downloaded: instagram_1.mp4"}`, rec.Body.String())
	assert.Equal(t, "https://www.instagram.com/reel/B/", pipeline.lastURL)
	assert.Equal(t, "/tmp/custom", pipeline.lastFolder)
}

func TestDownloadFailureMapsTo422(t *testing.T) {
	pipeline := &stubPipeline{ok: false, msg: "Media not found; it may have been deleted"}
	srv, _, _ := newTestServer(pipeline)

	body := strings.NewReader(`{"url": "https://www.instagram.com/reel/B/"}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/download", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp downloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "not found")
}

func TestDownloadRejectsBadBody(t *testing.T) {
	srv, _, _ := newTestServer(&stubPipeline{})

	for name, body := range map[string]string{
		"malformed":   `{not json`,
		"missing url": `{"folder": "/tmp"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMetricsExposed(t *testing.T) {
	srv, _, _ := newTestServer(&stubPipeline{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
