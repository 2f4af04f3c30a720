// Package config provides 12-factor configuration for the shell service.
//
// Values come from environment variables prefixed with OOPIS_ (defaults
// declared in struct tags). An optional TOML or YAML file named by
// OOPIS_CONFIG is applied afterwards; keys it sets take precedence.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Shell: default user, admin override, confirmation token, autosave
//   - Storage: snapshot backend (memory, file, postgres, s3) and breaker
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
