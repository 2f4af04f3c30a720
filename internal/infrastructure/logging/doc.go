// Package logging builds the process logger on uber/zap.
//
// Production output is JSON; development output is the colored console
// encoder. Each subsystem gets its own named child through Component, and
// SetLevel adjusts all of them at once.
//
//	logger, _ := logging.New(logging.Config{Level: "info"})
//	handlers := apihttp.NewHandlers(sessions, logger.Component("http"))
package logging
