package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireSecret_NoSecretConfigured(t *testing.T) {
	svc := newTestService("")

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSecret_MissingSecretRejected(t *testing.T) {
	svc := newTestService("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSecret_HeaderAccepted(t *testing.T) {
	svc := newTestService("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	req.Header.Set(SecretHeader, "s3cret")
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSecret_BearerTokenAccepted(t *testing.T) {
	svc := newTestService("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSecret_WrongSecretRejected(t *testing.T) {
	svc := newTestService("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	req.Header.Set(SecretHeader, "guess")
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthBypassesSecret(t *testing.T) {
	svc := newTestService("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
