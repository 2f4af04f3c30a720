// Package middleware holds gin middleware shared by the HTTP routes:
// CORS and per-client rate limiting.
package middleware
