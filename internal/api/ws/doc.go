// Package ws streams a shell session over a websocket.
//
// Clients connect to /stream?user=NAME and send {"type":"exec","line":...}
// or {"type":"ping"}. The server pushes "output" messages for everything
// the session presents, one "result" per submitted line, and "error" for
// malformed input. A "result" with pending set is parked at a
// confirmation; the next exec answers it.
package ws
