package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_KVv2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/garden/api", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		_, _ = w.Write([]byte(`{"data":{"data":{"JWT_SECRET":"s3cret","PLANT_ID_TIMEOUT_MS":30000,"OTEL_ENABLED":true}}}`))
	}))
	defer srv.Close()

	cfg := VaultConfig{Addr: srv.URL + "/", Token: "root", Mount: "/secret/", Path: "garden/api", KVVersion: 2}
	data, err := Fetch(context.Background(), cfg, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", data["JWT_SECRET"])
	assert.Equal(t, "30000", data["PLANT_ID_TIMEOUT_MS"])
	assert.Equal(t, "true", data["OTEL_ENABLED"])
}

func TestFetch_KVv1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/kv/garden", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"PLANT_ID_API_KEY":"abc"}}`))
	}))
	defer srv.Close()

	cfg := VaultConfig{Addr: srv.URL, Token: "t", Mount: "kv", Path: "garden", KVVersion: 1}
	data, err := Fetch(context.Background(), cfg, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PLANT_ID_API_KEY": "abc"}, data)
}

func TestFetch_ForbiddenIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"errors":["permission denied"]}`, http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := VaultConfig{Addr: srv.URL, Token: "bad", Mount: "secret", Path: "garden", KVVersion: 2}
	_, err := Fetch(context.Background(), cfg, srv.Client())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_IncompleteConfig(t *testing.T) {
	_, err := Fetch(context.Background(), VaultConfig{Addr: "http://vault"}, nil)
	assert.Error(t, err)
}

func TestApply_KeepsExistingUnlessOverwrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"data":{"GARDEN_TEST_A":"vault","GARDEN_TEST_B":"vault"}}}`))
	}))
	defer srv.Close()

	t.Setenv("GARDEN_TEST_A", "local")
	t.Setenv("GARDEN_TEST_B", "")

	cfg := VaultConfig{Enabled: true, Addr: srv.URL, Token: "t", Mount: "secret", Path: "garden", KVVersion: 2}
	result, err := Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, VaultResult{Loaded: 1, Skipped: 1}, result)
	assert.Equal(t, "local", getenv(t, "GARDEN_TEST_A"))
	assert.Equal(t, "vault", getenv(t, "GARDEN_TEST_B"))

	cfg.Overwrite = true
	_, err = Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "vault", getenv(t, "GARDEN_TEST_A"))
}

func TestApply_Disabled(t *testing.T) {
	result, err := Apply(context.Background(), VaultConfig{})
	require.NoError(t, err)
	assert.Zero(t, result)
}

func getenv(t *testing.T, key string) string {
	t.Helper()
	return os.Getenv(key)
}
