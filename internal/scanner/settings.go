package scanner

import (
	"fmt"
	"time"
)

// ScanSettings is the pacing budget a scan runs under: how many probes may
// be in flight at once and how long any single network step may take.
// It is produced once per run and shared read-only by every probe.
type ScanSettings struct {
	// Concurrency is the maximum number of simultaneously in-flight probes.
	Concurrency int

	// Timeout is the ceiling applied independently to each connect, TLS
	// handshake, write, and read a probe performs.
	Timeout time.Duration
}

// TimingProfile selects a preset pacing budget, mirroring the -T0..-T5
// convention of classic network scanners. Higher is faster and noisier.
type TimingProfile int

// Timing profiles in ascending aggressiveness. TimingAggressive has no
// preset; its settings are derived per target by the Calibrator.
const (
	TimingParanoid TimingProfile = iota
	TimingSneaky
	TimingPolite
	TimingNormal
	TimingAggressive
	TimingInsane
)

// String returns the display name shown in scan output.
func (t TimingProfile) String() string {
	switch t {
	case TimingParanoid:
		return "Paranoid (-T0)"
	case TimingSneaky:
		return "Sneaky (-T1)"
	case TimingPolite:
		return "Polite (-T2)"
	case TimingNormal:
		return "Normal (-T3)"
	case TimingAggressive:
		return "Aggressive (-T4, auto)"
	case TimingInsane:
		return "Insane (-T5)"
	default:
		return fmt.Sprintf("TimingProfile(%d)", int(t))
	}
}

// Settings returns the preset pacing budget for the profile. ok is false
// for TimingAggressive, whose budget must come from Calibrator.Calibrate,
// and for values outside the defined profiles.
func (t TimingProfile) Settings() (ScanSettings, bool) {
	switch t {
	case TimingParanoid:
		return ScanSettings{Concurrency: 5, Timeout: 15 * time.Second}, true
	case TimingSneaky:
		return ScanSettings{Concurrency: 100, Timeout: 5 * time.Second}, true
	case TimingPolite:
		return ScanSettings{Concurrency: 400, Timeout: 1200 * time.Millisecond}, true
	case TimingNormal:
		return ScanSettings{Concurrency: 1000, Timeout: 800 * time.Millisecond}, true
	case TimingInsane:
		return ScanSettings{Concurrency: 5000, Timeout: 300 * time.Millisecond}, true
	default:
		return ScanSettings{}, false
	}
}
