package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ServesHealth(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"exchange":"US","isOpen":true}`))
	}))
	defer provider.Close()
	t.Setenv("FINNHUB_BASE_URL", provider.URL)
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("REDIS_URL", "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("ADMIN_USERNAME", "")

	h, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health/json", nil))
	assert.Equal(t, 200, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stockfolio-api", body["service"])
}
