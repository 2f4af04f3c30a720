// Package main is the OopisOS shell server.
//
// It serves per-user shell sessions over HTTP and websockets, persisting
// each user's file-system tree in the configured snapshot store.
//
// Configuration:
//   - Environment variables (OOPIS_*, 12-factor)
//   - Optional TOML/YAML file via -config or OOPIS_CONFIG
//   - CLI flags override both
//
// Usage:
//
//	# File-backed storage, compressed snapshots
//	OOPIS_STORAGE_BACKEND=file OOPIS_STORAGE_DIR=/var/lib/oopis ./server -port 8080
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, saving every open session
package main
