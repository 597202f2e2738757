package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
// Port specification parse errors are the exception: they carry the
// offending token and live in ports.go as dynamic errors.
var (
	// ErrNoTarget is returned when no scan target is specified.
	// This error occurs when the positional argument is missing.
	ErrNoTarget = errors.New("no target specified: provide a host or IP address to scan")

	// ErrNoPorts is returned when the port specification parses to an
	// empty list, for example a spec containing only commas.
	ErrNoPorts = errors.New("no ports specified: the port specification is empty")

	// ErrInvalidTiming is returned when the timing profile is outside 0-5.
	// Only six templates exist; anything else has no defined behavior.
	ErrInvalidTiming = errors.New("invalid timing profile: must be between 0 and 5")

	// ErrInvalidTimeout is returned when the timeout override is negative.
	// Zero is valid and means the timing profile's timeout applies.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency override is
	// negative. Zero is valid and means the timing profile's value applies.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidRate is returned when the connection rate limit is negative.
	// Zero is valid and means unlimited.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
