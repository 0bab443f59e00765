package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. Clients switch on these; messages
// are for humans and may change freely.
const (
	codeInvalidJSON        = "invalid_json"
	codeInvalidRequest     = "invalid_request"
	codeInvalidCredentials = "invalid_credentials"
	codeInvalidRefresh     = "invalid_refresh_token"
	codeUnauthenticated    = "unauthenticated"
	codeNotFound           = "not_found"
	codeStorageUnavailable = "storage_unavailable"
)

// errorResponse is the single envelope every error leaving this package
// uses: {"error":{"code":"...","message":"..."}}.
type errorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// writeStorageUnavailable is the uniform 503 for storage faults. The
// caller logs the underlying error; it never reaches the client.
func writeStorageUnavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, codeStorageUnavailable, "please retry later")
}

var (
	errBodyMissing  = errors.New("request body is missing")
	errBodyTrailing = errors.New("trailing data after JSON body")
)

// decodeJSON decodes exactly one JSON value into dst. Oversized bodies,
// unknown fields and trailing data are all rejected; callers map any
// failure to codeInvalidJSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errBodyMissing
	}
	defer func() { _ = r.Body.Close() }()

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errBodyTrailing
	}
	return nil
}
