package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()

	Root().ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Event Management API is running", res.Body.String())
}

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	Healthz().ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"status":"ok"}`, res.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		res := httptest.NewRecorder()

		Readyz(func() error { return nil }).ServeHTTP(res, req)

		require.Equal(t, http.StatusOK, res.Code)
		require.JSONEq(t, `{"status":"ready"}`, res.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		res := httptest.NewRecorder()

		Readyz(func() error { return errors.New("connection refused") }).ServeHTTP(res, req)

		require.Equal(t, http.StatusServiceUnavailable, res.Code)
		require.JSONEq(t, `{"status":"unavailable"}`, res.Body.String())
	})
}
