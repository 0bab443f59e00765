package authapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLoginBody(t *testing.T, body string, maxBytes int64) error {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	var req loginRequest
	return decodeJSON(httptest.NewRecorder(), r, maxBytes, &req)
}

func TestDecodeJSON(t *testing.T) {
	err := decodeLoginBody(t, `{"email":"a@b.c","password":"x"}`, 1<<20)
	require.NoError(t, err)
}

func TestDecodeJSON_RejectsTrailingData(t *testing.T) {
	err := decodeLoginBody(t, `{"email":"a@b.c","password":"x"}{"again":true}`, 1<<20)
	require.ErrorIs(t, err, errBodyTrailing)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	err := decodeLoginBody(t, `{"email":"a@b.c","password":"x","extra":1}`, 1<<20)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errBodyTrailing)
}

func TestDecodeJSON_RejectsOversizedBody(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", 256) + `@b.c","password":"x"}`
	err := decodeLoginBody(t, body, 16)
	require.Error(t, err)
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeStorageUnavailable(rec)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, codeStorageUnavailable, errorCode(t, rec))
}
