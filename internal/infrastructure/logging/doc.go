// Package logging provides structured logging for scenemix.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the application.
//
// # Features
//
//   - Text output for the console (human-readable, the default)
//   - JSON output for running under a supervisor (machine-parsable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in scenemix.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("mixer connected", "model", "XR18")
//	logger.Error("scene sync failed", "error", err)
//
// Never log secrets: the OBS and MQTT passwords stay out of log fields.
package logging
