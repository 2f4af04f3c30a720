// Package server wires the shell runtime to gin: tracing, metrics, CORS
// and rate limiting middleware, the session API, the websocket stream and
// the Prometheus endpoint.
package server
