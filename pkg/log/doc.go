// Package log provides the logging abstraction accepted by ddlog.WithLogger.
//
// The handler logs its own operational messages (startup, retries, shutdown)
// through a Logger. By default nothing is logged.
//
// # Usage
//
// Use the zerolog adapter:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr))
//	h, err := ddlog.New(cfg, ddlog.WithLogger(logger))
//
// Or the no-op logger:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing
// logging infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// Do not route these messages back into a ddlog.Handler.
package log
