package middleware

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// CacheConfig holds HTTP cache and ETag configuration.
type CacheConfig struct {
	MaxAge      time.Duration // max-age sent in Cache-Control
	Private     bool          // Cache-Control: private instead of public
	VaryHeaders []string
}

// DefaultCacheConfig suits the reference catalogues, which hold no patient
// data and only change on a reseed.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:      5 * time.Minute,
		VaryHeaders: []string{"Accept"},
	}
}

// bufferedResponseWriter captures the response body so the ETag can be
// computed before anything reaches the client.
type bufferedResponseWriter struct {
	writer     http.ResponseWriter
	buf        *bytes.Buffer
	statusCode int
}

func newBufferedResponseWriter(w http.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{
		writer:     w,
		buf:        &bytes.Buffer{},
		statusCode: http.StatusOK,
	}
}

// Header returns the underlying header map, so headers set by the handler
// and by this middleware land in the same place.
func (w *bufferedResponseWriter) Header() http.Header {
	return w.writer.Header()
}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	w.statusCode = code
}

// Flush implements http.Flusher (no-op for buffer).
func (w *bufferedResponseWriter) Flush() {}

func (w *bufferedResponseWriter) flushTo() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() > 0 {
		_, err := w.writer.Write(w.buf.Bytes())
		return err
	}
	return nil
}

// ETag sets ETag, Cache-Control and Vary on successful GET and HEAD
// responses and answers a matching If-None-Match with 304 Not Modified.
// It replaces the no-store header set by SecurityHeaders, so it belongs
// only on groups that serve no patient data.
func ETag(config CacheConfig) echo.MiddlewareFunc {
	cacheControl := buildCacheControl(config)
	vary := strings.Join(config.VaryHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			origWriter := res.Writer
			buf := newBufferedResponseWriter(origWriter)
			res.Writer = buf

			err := next(c)
			res.Writer = origWriter
			if err != nil {
				return err
			}

			if buf.statusCode >= 400 {
				return buf.flushTo()
			}

			res.Header().Set("Cache-Control", cacheControl)
			if vary != "" {
				res.Header().Set("Vary", vary)
			}
			etag := computeETag(buf.buf.Bytes())
			res.Header().Set("ETag", etag)

			if inm := req.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
				res.Header().Del(echo.HeaderContentType)
				res.Header().Del(echo.HeaderContentLength)
				res.Status = http.StatusNotModified
				origWriter.WriteHeader(http.StatusNotModified)
				return nil
			}
			return buf.flushTo()
		}
	}
}

// computeETag returns a weak ETag based on the MD5 hash of the body.
func computeETag(body []byte) string {
	hash := md5.Sum(body)
	return fmt.Sprintf(`W/"%x"`, hash)
}

func buildCacheControl(config CacheConfig) string {
	scope := "public"
	if config.Private {
		scope = "private"
	}
	return fmt.Sprintf("%s, max-age=%d", scope, int(config.MaxAge/time.Second))
}

// etagMatch checks an If-None-Match value against etag. It accepts
// comma-separated lists and "*", and compares weakly.
func etagMatch(headerVal, etag string) bool {
	headerVal = strings.TrimSpace(headerVal)
	if headerVal == "*" {
		return true
	}
	for _, candidate := range strings.Split(headerVal, ",") {
		if stripWeakPrefix(strings.TrimSpace(candidate)) == stripWeakPrefix(etag) {
			return true
		}
	}
	return false
}

func stripWeakPrefix(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}
