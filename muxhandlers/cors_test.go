package muxhandlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/upload/{aid}/{dig}", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}).Methods(http.MethodGet, http.MethodPost)

	return r
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("wildcard with credentials rejected", func(t *testing.T) {
		_, err := CORSMiddleware(mux.NewRouter(), CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})
		assert.ErrorIs(t, err, ErrWildcardCredentials)
	})

	t.Run("allows matching origin", func(t *testing.T) {
		r := newTestRouter()
		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"https://Portal.example.com"}})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/upload/EAid/sha256-abc", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://portal.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Values("Vary"), "Origin")
	})

	t.Run("ignores non-matching origin", func(t *testing.T) {
		r := newTestRouter()
		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"https://portal.example.com"}})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/upload/EAid/sha256-abc", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("exposes signature headers", func(t *testing.T) {
		r := newTestRouter()
		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"*"}})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/upload/EAid/sha256-abc", nil)
		req.Header.Set("Origin", "https://any.example.com")
		r.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t,
			"cesr-attachment,cesr-date,content-type,signature,signature-input,signify-resource,signify-timestamp",
			w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("preflight answered without OPTIONS route", func(t *testing.T) {
		r := newTestRouter()
		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 600})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/upload/EAid/sha256-abc", nil)
		req.Header.Set("Origin", "https://any.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "signature,signature-input,signify-resource,signify-timestamp")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET,POST", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "signature,signature-input,signify-resource,signify-timestamp", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight with configured methods and headers", func(t *testing.T) {
		r := newTestRouter()
		r.HandleFunc("/ping", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet, http.MethodOptions)

		mw, err := CORSMiddleware(r, CORSConfig{
			AllowedOrigins: []string{"https://portal.example.com"},
			AllowedMethods: []string{http.MethodGet},
			AllowedHeaders: []string{"content-type"},
		})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://portal.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("method not allowed without preflight", func(t *testing.T) {
		r := newTestRouter()
		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"*"}})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/upload/EAid/sha256-abc", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.JSONEq(t, `{"msg":"Method Not Allowed"}`, w.Body.String())
	})

	t.Run("previous method not allowed handler kept", func(t *testing.T) {
		r := newTestRouter()
		r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		mw, err := CORSMiddleware(r, CORSConfig{AllowedOrigins: []string{"*"}})
		require.NoError(t, err)
		r.Use(mw)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/upload/EAid/sha256-abc", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}
