package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/marketplace/backend/pkg/retry"
)

func vaultServer(t *testing.T, status func(call int32) int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		assert.Equal(t, "/v1/secret/data/marketplace", r.URL.Path)
		code := status(n)
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(addr string) VaultConfig {
	return VaultConfig{
		Enabled:   true,
		Addr:      addr,
		Token:     "test-token",
		Mount:     "secret",
		Path:      "marketplace",
		KVVersion: 2,
		Timeout:   time.Second,
	}
}

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	result, err := ApplyVaultSecrets(context.Background(), VaultConfig{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
	assert.Zero(t, result.Loaded)
}

func TestApplyVaultSecrets_Incomplete(t *testing.T) {
	_, err := ApplyVaultSecrets(context.Background(), VaultConfig{Enabled: true, Addr: "http://vault"})
	assert.Error(t, err)
}

func TestApplyVaultSecrets_KV2(t *testing.T) {
	srv, _ := vaultServer(t, func(int32) int { return http.StatusOK },
		`{"data":{"data":{"VAULT_TEST_DB_PASSWORD":"s3cret","VAULT_TEST_PORT":5432,"VAULT_TEST_OTHER":"x"}}}`)

	t.Setenv("VAULT_TEST_DB_PASSWORD", "")
	t.Setenv("VAULT_TEST_PORT", "")
	t.Setenv("VAULT_TEST_OTHER", "")

	cfg := testConfig(srv.URL)
	cfg.Keys = []string{"VAULT_TEST_DB_PASSWORD", "VAULT_TEST_PORT"}

	result, err := ApplyVaultSecrets(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, "s3cret", os.Getenv("VAULT_TEST_DB_PASSWORD"))
	assert.Equal(t, "5432", os.Getenv("VAULT_TEST_PORT"))
	assert.Empty(t, os.Getenv("VAULT_TEST_OTHER"))
}

func TestApplyVaultSecrets_KeepsExisting(t *testing.T) {
	srv, _ := vaultServer(t, func(int32) int { return http.StatusOK },
		`{"data":{"data":{"VAULT_TEST_TOKEN":"from-vault"}}}`)
	t.Setenv("VAULT_TEST_TOKEN", "from-env")

	result, err := ApplyVaultSecrets(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "from-env", os.Getenv("VAULT_TEST_TOKEN"))

	cfg := testConfig(srv.URL)
	cfg.Overwrite = true
	result, err = ApplyVaultSecrets(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
	assert.Equal(t, "from-vault", os.Getenv("VAULT_TEST_TOKEN"))
}

func TestApplyVaultSecrets_RetriesUnavailable(t *testing.T) {
	srv, calls := vaultServer(t, func(n int32) int {
		if n < 3 {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	}, `{"data":{"data":{"VAULT_TEST_RETRY":"ok"}}}`)
	t.Setenv("VAULT_TEST_RETRY", "")

	cfg := testConfig(srv.URL)
	cfg.Retry = retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}

	_, err := ApplyVaultSecrets(context.Background(), cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Equal(t, "ok", os.Getenv("VAULT_TEST_RETRY"))
}

func TestApplyVaultSecrets_ServerError(t *testing.T) {
	srv, _ := vaultServer(t, func(int32) int { return http.StatusForbidden }, "")
	_, err := ApplyVaultSecrets(context.Background(), testConfig(srv.URL))
	assert.ErrorContains(t, err, "403")
}

func TestBuildVaultURL(t *testing.T) {
	url, err := buildVaultURL("http://vault:8200/", "/secret/", "/app/db", 1)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/secret/app/db", url)

	url, err = buildVaultURL("http://vault:8200", "secret", "app/db", 2)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/secret/data/app/db", url)

	_, err = buildVaultURL("", "secret", "app", 2)
	assert.Error(t, err)
}

func TestExtractVaultData(t *testing.T) {
	v1, err := extractVaultData(map[string]interface{}{"data": map[string]interface{}{"A": "1"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "1", v1["A"])

	_, err = extractVaultData(map[string]interface{}{"data": map[string]interface{}{"A": "1"}}, 2)
	assert.Error(t, err)
}

func TestStringifyVaultValue(t *testing.T) {
	assert.Equal(t, "true", stringifyVaultValue(true))
	assert.Equal(t, "1.5", stringifyVaultValue(1.5))
	assert.Equal(t, "", stringifyVaultValue(nil))
	assert.Equal(t, `["a","b"]`, stringifyVaultValue([]interface{}{"a", "b"}))
}

func TestLoadVaultConfigFromEnv_Keys(t *testing.T) {
	t.Setenv("VAULT_KEYS", "*")
	assert.Empty(t, LoadVaultConfigFromEnv().Keys)

	t.Setenv("VAULT_KEYS", "A, B,")
	assert.Equal(t, []string{"A", "B"}, LoadVaultConfigFromEnv().Keys)

	t.Setenv("VAULT_KEYS", "")
	assert.Equal(t, SensitiveKeys, LoadVaultConfigFromEnv().Keys)
}
