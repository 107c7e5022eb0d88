package observability

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	handler := PanicRecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())

	// panic detail stays in the log, not the response
	assert.Contains(t, buf.String(), "boom")
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestPanicRecoveryMiddlewarePassthrough(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	handler := PanicRecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	func() {
		defer RecoverPanic(logger, "background job")
		panic(errors.New("job failed"))
	}()

	require.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "background job")
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	err := MustRecover("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
