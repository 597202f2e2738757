// Package log provides logging functionality with automatic neutralization
// of control characters, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of control characters in string attributes
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Why sanitize
//
// Scan probes log data read straight off remote sockets. That data is
// controlled by whoever answers the connection: a banner containing a
// newline could forge additional log lines, and one containing terminal
// escape sequences could redraw or retitle the user's terminal when logs
// are viewed. The SanitizeHandler rewrites every control character in
// string attribute values to a dot before the record reaches the
// underlying handler, so raw network bytes are always safe to attach.
//
// # Usage
//
//	// Create a sanitizing logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Debug("banner received",
//	    "port", 22,
//	    "banner", string(raw), // control characters become dots
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
