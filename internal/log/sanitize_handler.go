package log

import (
	"context"
	"io"
	"log/slog"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Replacement is the rune substituted for control characters in logged
// string values. The dot mirrors the classic hexdump convention for
// unprintable bytes.
const Replacement = '.'

// controlMapper rewrites every control character to Replacement.
// Illegal UTF-8 bytes are converted to utf8.RuneError by runes.Map before
// the mapping runs, so arbitrary binary input always produces valid UTF-8.
var controlMapper = runes.Map(func(r rune) rune {
	if unicode.IsControl(r) {
		return Replacement
	}
	return r
})

// SanitizeHandler wraps an slog.Handler to neutralize control characters
// in string attribute values. Banners and probe responses come straight
// off remote sockets: a newline embedded in one would start a forged log
// line on handlers that don't quote values, and terminal escape sequences
// would otherwise reach the user's terminal.
//
// The record message is not rewritten. Call sites keep untrusted bytes in
// attribute values, never in the message itself.
//
// Design decision: We use a handler wrapper rather than escaping at each
// call site because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Probe code can attach raw network bytes as attributes without every
//     call site remembering to escape them
type SanitizeHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSanitizeHandler creates a new SanitizeHandler wrapping the given handler.
// All string attribute values will be sanitized before being passed to the
// underlying handler. If handler is nil, the returned SanitizeHandler will
// use slog.Default().Handler().
func NewSanitizeHandler(handler slog.Handler) *SanitizeHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SanitizeHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *SanitizeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SanitizeHandler) Handle(ctx context.Context, r slog.Record) error {
	// Create a new record with sanitized attributes
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	// Sanitize each attribute
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SanitizeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SanitizeHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SanitizeHandler) WithGroup(name string) slog.Handler {
	return &SanitizeHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SanitizeHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	// Only string values can carry raw network bytes
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, sanitizeString(a.Value.String()))
	}

	return a
}

// sanitizeString replaces control characters in s with Replacement and
// converts illegal UTF-8 bytes to the Unicode replacement character.
func sanitizeString(s string) string {
	sanitized, _, err := transform.String(controlMapper, s)
	if err != nil {
		// Never pass the raw value through on error
		return string(Replacement)
	}
	return sanitized
}

// NewLogger creates a new slog.Logger with sanitized text output.
// Control characters in logged string attributes are neutralized before
// they reach the terminal.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	sanitizeHandler := NewSanitizeHandler(textHandler)

	return slog.New(sanitizeHandler)
}

// NewJSONLogger creates a new slog.Logger with sanitized JSON output.
// Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output with sanitization.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	sanitizeHandler := NewSanitizeHandler(jsonHandler)

	return slog.New(sanitizeHandler)
}
