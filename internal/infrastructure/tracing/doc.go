/*
Package tracing correlates the log lines of one HTTP request.

Every request gets a trace ID (a UUID, or the caller's own X-Trace-ID when
it is well formed) that is echoed in the response header and carried in
the request context. Websocket handlers start child spans per message from
the same context. Finished spans are logged asynchronously through zap.

# Usage

	tracer := tracing.New("oopis", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "ws.exec")
	defer func() { span.Finish(); tracer.Submit(span) }()
*/
package tracing
