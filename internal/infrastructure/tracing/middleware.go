package tracing

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the trace ID in requests and responses.
const Header = "X-Trace-ID"

// HTTPMiddleware traces each request. A well-formed incoming X-Trace-ID
// is kept so callers can correlate their own logs.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader(Header); incoming != "" {
			if _, err := uuid.Parse(incoming); err == nil {
				ctx = WithTraceID(ctx, TraceID(incoming))
			}
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.client_ip", c.ClientIP())

		c.Request = c.Request.WithContext(ctx)
		c.Header(Header, string(span.TraceID))

		start := time.Now()
		c.Next()
		span.Duration = time.Since(start)

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(errors.New(c.Errors.String()))
		}
		tracer.Submit(span)
	}
}
