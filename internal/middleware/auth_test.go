package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedHandler(t *testing.T, keys map[string]string) (http.Handler, *string) {
	t.Helper()
	var seenUser string
	h := APIKeyAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seenUser
}

func TestAPIKeyAuthAcceptsBearerToken(t *testing.T) {
	h, seenUser := authedHandler(t, map[string]string{"alice": "k-alice"})

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	req.Header.Set("Authorization", "Bearer k-alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", *seenUser)
}

func TestAPIKeyAuthAcceptsBareKey(t *testing.T) {
	h, seenUser := authedHandler(t, map[string]string{"alice": "k-alice"})

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	req.Header.Set("Authorization", "k-alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", *seenUser)
}

func TestAPIKeyAuthRejectsMissingAndWrongKeys(t *testing.T) {
	h, _ := authedHandler(t, map[string]string{"alice": "k-alice"})

	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthSkipsHealth(t *testing.T) {
	h, _ := authedHandler(t, map[string]string{"alice": "k-alice"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateMode(t *testing.T) {
	assert.NoError(t, ValidateMode("buyer"))
	assert.NoError(t, ValidateMode("Seller"))
	assert.Error(t, ValidateMode("arbiter"))
}

func TestValidateCodes(t *testing.T) {
	assert.NoError(t, ValidateCodes([]string{"Code civil", "Code de commerce"}))
	assert.Error(t, ValidateCodes([]string{"Code pénal"}))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("application/pdf", "contrat"))
	assert.True(t, IsPDF("application/octet-stream", "contrat.PDF"))
	assert.False(t, IsPDF("image/png", "scan.png"))
}
