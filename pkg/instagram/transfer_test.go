package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "insightminer/pkg/errors"
)

func TestTransferSuccess(t *testing.T) {
	content := []byte("fake video bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	client := newTestClient(server)
	destPath := filepath.Join(t.TempDir(), "instagram_1.mp4")

	written, err := client.Transfer(context.Background(), server.URL+"/media.mp4", destPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), written)

	got, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestTransferExpiredURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	destPath := filepath.Join(t.TempDir(), "out.mp4")

	_, err := client.Transfer(context.Background(), server.URL+"/expired.mp4", destPath)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
	assert.NoFileExists(t, destPath)
}

func TestTransferForbiddenEscalation(t *testing.T) {
	var transferAttempts, browseHits int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			browseHits++
			http.SetCookie(w, &http.Cookie{Name: "mid", Value: "fresh-mid"})
			w.WriteHeader(http.StatusOK)
		case "/media.mp4":
			transferAttempts++
			if transferAttempts == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			// The escalated retry carries the expanded header set
			assert.NotEmpty(t, r.Header.Get("Origin"))
			assert.Equal(t, "1", r.Header.Get("DNT"))
			w.Write([]byte("content"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	destPath := filepath.Join(t.TempDir(), "out.mp4")

	written, err := client.Transfer(context.Background(), server.URL+"/media.mp4", destPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len("content")), written)
	assert.Equal(t, 2, transferAttempts, "exactly one escalated retry")
	assert.Equal(t, 1, browseHits, "one browsing-state refresh round-trip")
	assert.Equal(t, "fresh-mid", client.Cookie("mid"), "refreshed cookies absorbed into the session")
}

func TestTransferForbiddenTwiceIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Transfer(context.Background(), server.URL+"/media.mp4", filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
}

func TestTransferOtherStatusNoEscalation(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Transfer(context.Background(), server.URL+"/media.mp4", filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.Equal(t, 1, hits, "no escalation on other non-2xx statuses")
}

func TestTransferSendsSessionFingerprint(t *testing.T) {
	var gotReferer, gotCSRF, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotCSRF = r.Header.Get("X-CSRFToken")
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("x"))
	}))
	defer server.Close()

	client := newTestClient(server)
	client.SetHeader("X-CSRFToken", "csrf-value")
	client.SetCookies(map[string]string{"sessionid": "s1"})

	_, err := client.Transfer(context.Background(), server.URL+"/m.jpg", filepath.Join(t.TempDir(), "m.jpg"))
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/", gotReferer)
	assert.Equal(t, "csrf-value", gotCSRF)
	assert.Contains(t, gotCookie, "sessionid=s1")
}
