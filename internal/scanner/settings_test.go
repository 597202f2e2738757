package scanner

import (
	"testing"
	"time"
)

// TestTimingProfileString tests the display names shown in scan output.
func TestTimingProfileString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		profile  TimingProfile
		expected string
	}{
		{TimingParanoid, "Paranoid (-T0)"},
		{TimingSneaky, "Sneaky (-T1)"},
		{TimingPolite, "Polite (-T2)"},
		{TimingNormal, "Normal (-T3)"},
		{TimingAggressive, "Aggressive (-T4, auto)"},
		{TimingInsane, "Insane (-T5)"},
		{TimingProfile(9), "TimingProfile(9)"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.profile.String(); got != tc.expected {
				t.Errorf("String() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestTimingProfileSettings tests the preset pacing budgets.
func TestTimingProfileSettings(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		profile     TimingProfile
		concurrency int
		timeout     time.Duration
		ok          bool
	}{
		{"paranoid", TimingParanoid, 5, 15 * time.Second, true},
		{"sneaky", TimingSneaky, 100, 5 * time.Second, true},
		{"polite", TimingPolite, 400, 1200 * time.Millisecond, true},
		{"normal", TimingNormal, 1000, 800 * time.Millisecond, true},
		{"aggressive has no preset", TimingAggressive, 0, 0, false},
		{"insane", TimingInsane, 5000, 300 * time.Millisecond, true},
		{"out of range has no preset", TimingProfile(42), 0, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			settings, ok := tc.profile.Settings()
			if ok != tc.ok {
				t.Fatalf("ok = %v, expected %v", ok, tc.ok)
			}
			if settings.Concurrency != tc.concurrency {
				t.Errorf("Concurrency = %d, expected %d", settings.Concurrency, tc.concurrency)
			}
			if settings.Timeout != tc.timeout {
				t.Errorf("Timeout = %v, expected %v", settings.Timeout, tc.timeout)
			}
		})
	}
}
