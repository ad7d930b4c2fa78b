package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/ragpipe/internal/metrics"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Generated(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-42", captured)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesOversizedHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	got := w.Header().Get(RequestIDHeader)
	assert.Len(t, got, 36)
}

func TestMaxBodyBytes_RejectsLargeBody(t *testing.T) {
	handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"too long"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMaxBodyBytes_AllowsSmallBody(t *testing.T) {
	handler := MaxBodyBytes(64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"hi"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"question":"hi"}`, w.Body.String())
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	req.Header.Set("X-Request-ID", "req-7")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/documents", entry["path"])
	assert.Equal(t, float64(http.StatusAccepted), entry["status"])
	assert.Equal(t, float64(2), entry["bytes"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "10.0.0.1", entry["remote_addr"])
}

func TestAccessLog_ServerErrorLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ask", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := scrape.Body.String()
	assert.Contains(t, body, `ragpipe_http_requests_total{method="GET",route="/items/{id}",status="204"} 2`)
	assert.Contains(t, body, `ragpipe_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	tests := []struct {
		status int
		want   sentry.SpanStatus
	}{
		{http.StatusOK, sentry.SpanStatusOK},
		{http.StatusBadRequest, sentry.SpanStatusInvalidArgument},
		{http.StatusNotFound, sentry.SpanStatusNotFound},
		{http.StatusTooManyRequests, sentry.SpanStatusResourceExhausted},
		{http.StatusRequestEntityTooLarge, sentry.SpanStatusResourceExhausted},
		{http.StatusInternalServerError, sentry.SpanStatusInternalError},
		{http.StatusBadGateway, sentry.SpanStatusUnavailable},
		{http.StatusGatewayTimeout, sentry.SpanStatusDeadlineExceeded},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, httpStatusToSpanStatus(tt.status), "status %d", tt.status)
	}
}

func TestTracing_PassesThroughWithoutClient(t *testing.T) {
	handler := Tracing("rag_abc123")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, sentry.GetHubFromContext(r.Context()))
		assert.NotNil(t, sentry.SpanFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_RecoversPanic(t *testing.T) {
	handler := Tracing("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("index corrupted")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
