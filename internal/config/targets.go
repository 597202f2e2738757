package config

// TargetConfig holds scan settings for a single target host.
// This allows customizing scan behavior per target, so frequently scanned
// hosts can carry their own port ranges and timing without CLI flags.
//
// Design decision: Timing and Rate are pointers because their zero values
// are meaningful (-T0 is the Paranoid profile, rate 0 means unlimited).
// A nil pointer means "not set in the file"; the other fields use their
// zero value for that.
type TargetConfig struct {
	// Ports is a port specification string in ParsePortSpec syntax,
	// e.g. "80,443" or "1-8080".
	Ports string `yaml:"ports,omitempty"`

	// Timing overrides the timing profile (0-5) for this target.
	Timing *int `yaml:"timing,omitempty"`

	// Timeout overrides the per-connection timeout, in Go duration
	// syntax (e.g. "800ms", "2s").
	Timeout string `yaml:"timeout,omitempty"`

	// Concurrency overrides the number of concurrent connection attempts.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Rate overrides the maximum connection attempts per second.
	// Zero means unlimited.
	Rate *int `yaml:"rate,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" format used for
	// all connections to this target.
	Proxy string `yaml:"proxy,omitempty"`
}

// File represents the structure of the portdog configuration file.
type File struct {
	// Defaults contains settings applied to every target unless
	// overridden in the target-specific configuration.
	Defaults TargetConfig `yaml:"defaults,omitempty"`

	// Targets maps host names or IP addresses to their target-specific
	// configurations. Keys must match the scan target exactly as given
	// on the command line.
	Targets map[string]TargetConfig `yaml:"targets,omitempty"`
}

// GetTargetConfig returns the configuration for a specific target.
// It merges the target-specific configuration with defaults; CLI flags
// take precedence over both, which the command layer enforces.
func (cf *File) GetTargetConfig(target string) TargetConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with target-specific configuration if present
	if targetConfig, ok := cf.Targets[target]; ok {
		if targetConfig.Ports != "" {
			result.Ports = targetConfig.Ports
		}
		if targetConfig.Timing != nil {
			result.Timing = targetConfig.Timing
		}
		if targetConfig.Timeout != "" {
			result.Timeout = targetConfig.Timeout
		}
		if targetConfig.Concurrency != 0 {
			result.Concurrency = targetConfig.Concurrency
		}
		if targetConfig.Rate != nil {
			result.Rate = targetConfig.Rate
		}
		if targetConfig.Proxy != "" {
			result.Proxy = targetConfig.Proxy
		}
	}

	return result
}
