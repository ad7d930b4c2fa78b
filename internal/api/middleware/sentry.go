package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/api"
	"github.com/getsentry/sentry-go"
)

// Tracing opens a Sentry transaction per request so pipeline stages started
// by the handlers become its child spans. Transactions are named after the
// matched route and tagged with the collection being served. A panic in a
// handler is reported and answered with a 500. Without an initialized
// client the transactions are simply dropped.
func Tracing(collection string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}

			options := []sentry.SpanOption{
				sentry.WithOpName("http.server"),
				sentry.WithTransactionSource(sentry.SourceURL),
			}
			if trace := r.Header.Get("sentry-trace"); trace != "" {
				options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get("baggage")))
			}

			tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
			defer tx.Finish()

			r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))

			requestID := GetRequestID(r.Context())
			hub.Scope().SetTag("request_id", requestID)
			tx.SetTag("request_id", requestID)
			if collection != "" {
				hub.Scope().SetTag("collection", collection)
				tx.SetTag("collection", collection)
			}

			rec := &responseRecorder{ResponseWriter: w}
			defer func() {
				if p := recover(); p != nil {
					tx.Status = sentry.SpanStatusInternalError
					hub.RecoverWithContext(r.Context(), p)
					if rec.status == 0 {
						api.Error(rec, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(rec, r)

			if pattern := routePattern(r); pattern != "unmatched" {
				tx.Name = r.Method + " " + pattern
				tx.Source = sentry.SourceRoute
			}

			status := rec.statusCode()
			tx.Status = httpStatusToSpanStatus(status)
			tx.SetData("http.response.status_code", status)
			if status >= 500 {
				hub.CaptureMessage(fmt.Sprintf("HTTP %d %s: %s", status, tx.Name, http.StatusText(status)))
			}
		})
	}
}

// httpStatusToSpanStatus converts HTTP status code to Sentry span status.
func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	switch {
	case status >= 200 && status < 300:
		return sentry.SpanStatusOK
	case status == http.StatusNotFound:
		return sentry.SpanStatusNotFound
	case status == http.StatusRequestEntityTooLarge, status == http.StatusTooManyRequests:
		return sentry.SpanStatusResourceExhausted
	case status == 499:
		return sentry.SpanStatusCanceled
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable:
		return sentry.SpanStatusUnavailable
	case status == http.StatusGatewayTimeout:
		return sentry.SpanStatusDeadlineExceeded
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
