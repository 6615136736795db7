// Package logging provides structured logging for the parking lot core.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on all entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("slot registered", "slot_number", "A1")
//
// # Security
//
// Never log one-time codes, tokens or secrets. Licence plates are logged
// because they are already printed on the vehicle.
package logging
