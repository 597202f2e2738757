package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the scanner's built-in timing model and are chosen
// to be safe on typical home and lab networks.
const (
	// DefaultPortSpec covers the well-known port range. Scanning all 65535
	// ports by default would make casual scans take far longer than most
	// users expect; "-" is available for a full sweep.
	DefaultPortSpec = "1-1024"

	// DefaultTimingProfile is Normal (-T3): 1000 concurrent connection
	// attempts with an 800ms timeout. This is fast on LANs and broadband
	// links without tripping conservative rate limiters. Profiles 0-5
	// are defined in internal/scanner.
	DefaultTimingProfile = 3

	// DefaultRate of 0 disables connection-rate throttling. Concurrency
	// already bounds the number of in-flight connections, so an explicit
	// attempts-per-second ceiling is opt-in via --rate.
	DefaultRate = 0

	// AppName is the application name used for XDG directory paths.
	AppName = "portdog"
)

// Config holds all configuration options for portdog.
// This struct is designed to be populated from CLI flags and the optional
// config file, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ScanConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Target is the host to scan, as the user supplied it. It may be an
	// IP address or a hostname; hostnames are resolved locally before
	// scanning. Reports echo this value, not the resolved address.
	Target string

	// PortSpec is the raw port specification string, e.g. "80,443",
	// "1-1024", or "-" for all ports. Kept alongside Ports so reports
	// and history records can show what the user asked for.
	PortSpec string

	// Ports is the parsed, deduplicated, ascending port list produced by
	// ParsePortSpec. The CLI layer populates this after flag parsing.
	Ports []int

	// TimingProfile selects the scan timing template (0-5).
	// 0 is Paranoid, 3 is Normal, 4 is Aggressive (auto-calibrating),
	// 5 is Insane. See internal/scanner for the concrete presets.
	TimingProfile int

	// Timeout, when non-zero, overrides the per-connection timeout chosen
	// by the timing profile or calibration. This is the total budget for
	// a single port probe including any banner exchanges.
	Timeout time.Duration

	// Concurrency, when non-zero, overrides the number of concurrent
	// connection attempts chosen by the timing profile or calibration.
	Concurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// When true, outputs the machine-readable report and suppresses the
	// banner art, progress counter, and table.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. When true, outputs GitHub Flavored Markdown with tables and a
	// service distribution chart.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// When set, every probe and calibration connection is dialed through
	// the proxy. DNS resolution still happens locally.
	ProxyAddress string

	// Rate is the maximum number of connection attempts per second.
	// Zero means unlimited. This caps the rate across all workers, on
	// top of the concurrency bound.
	Rate int

	// NoHistory disables recording the completed scan in the local
	// history database.
	NoHistory bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .portdog.yaml in the current
	// directory and then config.yaml in the XDG config directory.
	ConfigFilePath string

	// TargetConfigs holds per-target configurations loaded from the config
	// file. This is populated by LoadConfigFile and consulted before CLI
	// flag overrides are applied.
	TargetConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero (e.g., the port range
// and timing profile). This also serves as documentation of what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		PortSpec:      DefaultPortSpec,
		TimingProfile: DefaultTimingProfile,
		Rate:          DefaultRate,
	}
}

// XDGDataDir returns the XDG data directory for portdog.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/portdog
// On macOS: ~/Library/Application Support/portdog
// On Windows: %LOCALAPPDATA%\portdog
// The scan history database lives here.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for portdog.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/portdog
// On macOS: ~/Library/Application Support/portdog
// On Windows: %APPDATA%\portdog
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have a target to scan
	if c.Target == "" {
		return ErrNoTarget
	}

	// An empty port list means there is nothing to do; this happens when
	// the port specification contains only separators (e.g. ",,")
	if len(c.Ports) == 0 {
		return ErrNoPorts
	}

	// Timing profiles outside 0-5 have no defined preset
	if c.TimingProfile < 0 || c.TimingProfile > 5 {
		return ErrInvalidTiming
	}

	// A negative timeout is invalid; zero means "use the profile's value"
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	// Negative concurrency is invalid; zero means "use the profile's value"
	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	// Negative rate is invalid; zero means unlimited
	if c.Rate < 0 {
		return ErrInvalidRate
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
