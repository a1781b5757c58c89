package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/metagate/internal/log"
)

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	mux := chi.NewRouter()
	mux.Use(RequestID(), Logging(zap.New(core), "/healthz"))
	mux.Get("/v1/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		log.From(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/v1/users/1", nil)
	req.Header.Set("X-Request-Id", "req-1")
	mux.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "inside handler", entries[0].Message)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])

	fields := entries[1].ContextMap()
	assert.Equal(t, "request completed", entries[1].Message)
	assert.Equal(t, "/v1/users/{id}", fields["route"])
	assert.EqualValues(t, http.StatusAccepted, fields["status"])
	assert.EqualValues(t, 2, fields["bytes"])

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	last := logs.All()[logs.Len()-1]
	assert.Equal(t, zapcore.ErrorLevel, last.Level)

	before := logs.Len()
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, before, logs.Len(), "skipped paths are not logged")
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Same(t, rw, wrapResponseWriter(rw))
}
