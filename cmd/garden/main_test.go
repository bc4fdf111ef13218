package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeStore(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "hunter22" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"accessToken":"tok","refreshToken":"ref","userId":"u1"}`))
	})
	mux.HandleFunc("GET /plants/{userId}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"p1","userId":"u1","name":"Monstera deliciosa","isPlant":{"binary":true},"classification":{"suggestions":[{"name":"Monstera deliciosa","probability":0.97}]},"createdAt":"2026-05-01T10:00:00Z"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T, storeURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("GARDEN_STORE_URL", storeURL)
	t.Setenv("GARDEN_SESSION_DB", filepath.Join(dir, "session.db"))
}

func garden(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_LoginListLogout(t *testing.T) {
	setupEnv(t, fakeStore(t).URL)

	code, out, _ := garden("hunter22\n", "login", "ana@example.com")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed in")

	code, out, _ = garden("", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "p1")
	assert.Contains(t, out, "Monstera deliciosa")

	code, _, _ = garden("", "logout")
	require.Equal(t, 0, code)

	code, _, errOut := garden("", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sign in")
}

func TestRun_BadPassword(t *testing.T) {
	setupEnv(t, fakeStore(t).URL)

	code, _, errOut := garden("wrong\n", "login", "ana@example.com")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid email or password")
}

func TestRun_IdentifyRequiresSession(t *testing.T) {
	setupEnv(t, fakeStore(t).URL)

	code, _, errOut := garden("", "identify", "leaf.jpg")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sign in")
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t, fakeStore(t).URL)

	code, _, errOut := garden("")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: garden")

	code, _, _ = garden("", "prune")
	assert.Equal(t, 2, code)

	code, _, _ = garden("", "rename", "p1")
	assert.Equal(t, 2, code)
}

func TestRun_WaterRejectsBadDate(t *testing.T) {
	setupEnv(t, fakeStore(t).URL)

	code, _, errOut := garden("", "water", "p1", "yesterday")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "YYYY-MM-DD")
}
