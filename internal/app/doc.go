// Package app assembles the shell runtime shared by the HTTP server and
// the command-line client.
//
// It opens the configured snapshot store, registers the built-in
// commands and creates the session manager on top of both.
//
// Example Usage:
//
//	a, err := app.New(ctx, cfg, logger.Logger, metrics)
//	if err != nil {
//	    return err
//	}
//	defer a.Close(ctx)
//	s, err := a.Sessions.Open(ctx, "guest")
package app
