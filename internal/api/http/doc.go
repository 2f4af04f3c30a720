// Package http exposes shell sessions over a JSON API.
//
// Each request addresses a user; the user's session is opened on first
// use and kept by the session manager. POST /sessions/:user/exec returns
// the line's outcome together with everything the session presented
// while the line ran, so a parked confirmation shows its prompt and the
// next exec answers it.
package http
