package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a request body is read for the log line.
const maxLoggedBody = 4 << 10

var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"cookie",
	"credential",
}

const filtered = "[FILTERED]"

// LoggingMiddleware logs one line when a request starts and one when it
// finishes. JSON request bodies are logged with sensitive keys masked;
// response bodies are never logged.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := GetRequestID(r.Context())

			attrs := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", filterSensitiveHeaders(r.Header),
			}
			if isJSON(r) {
				attrs = append(attrs, "body", peekBody(r))
			}
			logger.Debug("incoming request", attrs...)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			done := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
			}
			logger.Log(r.Context(), level, "request completed", done...)
		})
	}
}

func isJSON(r *http.Request) bool {
	return r.Body != nil && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// peekBody reads up to maxLoggedBody bytes and restores the body for the
// next handler.
func peekBody(r *http.Request) string {
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	if err != nil {
		return ""
	}
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	return filterSensitiveBody(head)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterSensitiveBody masks sensitive keys in a JSON document. Bodies that
// do not parse are dropped.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[UNPARSED]"
	}
	masked, err := json.Marshal(filterSensitiveJSON(doc))
	if err != nil {
		return "[UNPARSED]"
	}
	return string(masked)
}

func filterSensitiveJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = filterSensitiveJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = filterSensitiveJSON(item)
		}
		return out
	default:
		return v
	}
}
