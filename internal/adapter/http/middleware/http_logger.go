package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hykura1501/e-commerce/internal/logging"
)

const bodyLimit = 8 * 1024

// Shopper contact details and credentials never reach the log.
var redactedKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"access_token":  {},
	"password":      {},
	"secret":        {},
	"phone":         {},
	"address":       {},
}

var quietPaths = map[string]struct{}{"/healthz": {}, "/metrics": {}}

type cappedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *cappedWriter) Write(b []byte) (int, error) {
	if room := bodyLimit - w.buf.Len(); room > 0 {
		w.buf.Write(b[:min(len(b), room)])
	}
	return w.ResponseWriter.Write(b)
}

func scrub(x any) any {
	switch v := x.(type) {
	case map[string]any:
		for k, val := range v {
			if _, hide := redactedKeys[strings.ToLower(k)]; hide {
				v[k] = "***redacted***"
				continue
			}
			v[k] = scrub(val)
		}
	case []any:
		for i := range v {
			v[i] = scrub(v[i])
		}
	}
	return x
}

func redactJSON(raw []byte) string {
	var m any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return string(raw)
	}
	b, err := json.Marshal(scrub(m))
	if err != nil {
		return string(raw)
	}
	return string(b)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func isJSON(ct string) bool { return strings.Contains(ct, "application/json") }

// Logging injects a request-scoped slog.Logger and writes one line per request.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)

		l := base.With("req_id", reqID, "method", c.Request.Method, "path", c.FullPath())
		logging.With(c, l)

		if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
			c.Next()
			return
		}

		var reqBody string
		if isJSON(c.GetHeader("Content-Type")) && c.Request.Body != nil {
			orig := c.Request.Body
			raw, _ := io.ReadAll(io.LimitReader(orig, bodyLimit+1))
			c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(raw), orig), orig}
			if len(raw) > bodyLimit {
				reqBody = string(raw[:bodyLimit]) + "...truncated..."
			} else {
				reqBody = redactJSON(raw)
			}
		}

		w := &cappedWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		attrs := []any{"status", status, "dur_ms", time.Since(start).Milliseconds(), "resp_bytes", c.Writer.Size()}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if isJSON(c.Writer.Header().Get("Content-Type")) {
			attrs = append(attrs, "resp_body", redactJSON(w.buf.Bytes()))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		// the handler may have enriched the logger (session, user)
		l = logging.From(c)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Info("http_request", attrs...)
		}
	}
}
