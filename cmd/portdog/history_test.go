package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/portdog/internal/history"
	"github.com/nao1215/portdog/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [target]" {
			t.Errorf("expected use 'history [target]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has targets flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("targets")
		if flag == nil {
			t.Fatal("expected targets flag")
		}
		if flag.Shorthand != "l" {
			t.Errorf("expected shorthand 'l', got %q", flag.Shorthand)
		}
	})

	t.Run("has diff flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("diff")
		if flag == nil {
			t.Fatal("expected diff flag")
		}
		if flag.Shorthand != "d" {
			t.Errorf("expected shorthand 'd', got %q", flag.Shorthand)
		}
	})

	t.Run("has with-scan-id flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("with-scan-id")
		if flag == nil {
			t.Fatal("expected with-scan-id flag")
		}
		if flag.Shorthand != "i" {
			t.Errorf("expected shorthand 'i', got %q", flag.Shorthand)
		}
		if flag.DefValue != "0" {
			t.Errorf("expected default '0', got %q", flag.DefValue)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})
}

// captureStdout runs fn while capturing everything written to stdout.
// Tests using this helper must not run in parallel.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	_ = w.Close() //nolint:errcheck
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r) //nolint:errcheck
	_ = r.Close()          //nolint:errcheck
	return buf.String(), fnErr
}

// newTestStore opens a history store under a temp directory.
func newTestStore(t *testing.T) *history.Store {
	t.Helper()

	store, err := history.Open(t.TempDir(), history.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close() //nolint:errcheck
	})
	return store
}

// historyReport builds a report with a fixed start time for deterministic ordering.
func historyReport(target string, startedAt time.Time, ports ...model.PortReport) *model.ScanReport {
	scanReport := model.NewScanReport(target)
	scanReport.StartedAt = startedAt
	scanReport.OpenPorts = append(scanReport.OpenPorts, ports...)
	scanReport.PortsScanned = 1024
	return scanReport
}

// TestListRecordedTargets tests the --targets listing.
func TestListRecordedTargets(t *testing.T) {
	ctx := context.Background()

	t.Run("reports empty database", func(t *testing.T) {
		store := newTestStore(t)

		output, err := captureStdout(t, func() error {
			return listRecordedTargets(ctx, store)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "No recorded scans found") {
			t.Errorf("expected empty-database message, got: %s", output)
		}
	})

	t.Run("lists recorded targets", func(t *testing.T) {
		store := newTestStore(t)
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for _, target := range []string{"zeta.example", "alpha.example"} {
			if _, err := store.SaveReport(ctx, historyReport(target, base)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		output, err := captureStdout(t, func() error {
			return listRecordedTargets(ctx, store)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "Recorded targets (2):") {
			t.Errorf("expected target count header, got: %s", output)
		}
		if !strings.Contains(output, "alpha.example") || !strings.Contains(output, "zeta.example") {
			t.Errorf("expected both targets in output, got: %s", output)
		}
	})
}

// TestListScanHistory tests the scan listing for a single target.
func TestListScanHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("reports missing history", func(t *testing.T) {
		store := newTestStore(t)

		output, err := captureStdout(t, func() error {
			return listScanHistory(ctx, store, "unknown.example")
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "No scan history found for unknown.example") {
			t.Errorf("expected missing-history message, got: %s", output)
		}
	})

	t.Run("lists scans newest first", func(t *testing.T) {
		store := newTestStore(t)
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ports := []model.PortReport{
			{Port: 22, State: model.PortStateOpen, Service: "ssh", Banner: "SSH-2.0-OpenSSH_9.3"},
		}
		for i := 0; i < 2; i++ {
			if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Duration(i)*time.Minute), ports...)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		output, err := captureStdout(t, func() error {
			return listScanHistory(ctx, store, "scanme.example")
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "Scan history for scanme.example (2 scans):") {
			t.Errorf("expected history header, got: %s", output)
		}
		if !strings.Contains(output, "Digest") {
			t.Errorf("expected digest column, got: %s", output)
		}
		// Newest first: 12:01 must appear before 12:00.
		newest := strings.Index(output, "2025-06-01 12:01:00")
		oldest := strings.Index(output, "2025-06-01 12:00:00")
		if newest == -1 || oldest == -1 || newest > oldest {
			t.Errorf("expected newest scan first, got: %s", output)
		}
	})
}

// TestShortDigest tests digest abbreviation.
func TestShortDigest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		digest   string
		expected string
	}{
		{name: "short digest unchanged", digest: "abc123", expected: "abc123"},
		{name: "long digest truncated", digest: "0123456789abcdef0123", expected: "0123456789ab"},
		{name: "empty digest", digest: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := shortDigest(tc.digest); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestDescribeFingerprint tests the one-line fingerprint rendering.
func TestDescribeFingerprint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		port     model.PortReport
		expected string
	}{
		{
			name:     "service only",
			port:     model.PortReport{Service: "https"},
			expected: "https",
		},
		{
			name:     "service and banner",
			port:     model.PortReport{Service: "ssh", Banner: "SSH-2.0-OpenSSH_9.3"},
			expected: "ssh  SSH-2.0-OpenSSH_9.3",
		},
		{
			name:     "banner newlines flattened",
			port:     model.PortReport{Service: "http", Banner: "line1\nline2"},
			expected: "http  line1 line2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := describeFingerprint(tc.port); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestRunHistoryDiff tests scan comparison against the history store.
func TestRunHistoryDiff(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns error when no scans exist", func(t *testing.T) {
		store := newTestStore(t)

		err := runHistoryDiff(ctx, store, "unknown.example", 0, false)
		if err == nil {
			t.Fatal("expected error for missing history")
		}
		if !strings.Contains(err.Error(), "no scan history found for unknown.example") {
			t.Errorf("expected missing-history error, got: %v", err)
		}
	})

	t.Run("requires two scans for a latest diff", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		err := runHistoryDiff(ctx, store, "scanme.example", 0, false)
		if err == nil {
			t.Fatal("expected error for single scan")
		}
		if !strings.Contains(err.Error(), "at least 2 scans are required for comparison (found 1)") {
			t.Errorf("expected two-scans error, got: %v", err)
		}
	})

	t.Run("diffs the two most recent scans", func(t *testing.T) {
		store := newTestStore(t)
		oldPorts := []model.PortReport{
			{Port: 22, State: model.PortStateOpen, Service: "ssh", Banner: ""},
		}
		newPorts := []model.PortReport{
			{Port: 22, State: model.PortStateOpen, Service: "ssh", Banner: ""},
			{Port: 8080, State: model.PortStateOpen, Service: "http-proxy", Banner: ""},
		}
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base, oldPorts...)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Minute), newPorts...)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		output, err := captureStdout(t, func() error {
			return runHistoryDiff(ctx, store, "scanme.example", 0, false)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "Scan Comparison: scanme.example") {
			t.Errorf("expected comparison header, got: %s", output)
		}
		if !strings.Contains(output, "[+] 8080/tcp") {
			t.Errorf("expected added port marker, got: %s", output)
		}
	})

	t.Run("reports unchanged scans", func(t *testing.T) {
		store := newTestStore(t)
		ports := []model.PortReport{
			{Port: 443, State: model.PortStateOpen, Service: "https", Banner: ""},
		}
		for i := 0; i < 2; i++ {
			if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Duration(i)*time.Minute), ports...)); err != nil {
				t.Fatalf("failed to save report: %v", err)
			}
		}

		output, err := captureStdout(t, func() error {
			return runHistoryDiff(ctx, store, "scanme.example", 0, false)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "No changes") {
			t.Errorf("expected no-changes message, got: %s", output)
		}
	})

	t.Run("compares against a specific scan ID", func(t *testing.T) {
		store := newTestStore(t)
		oldID, err := store.SaveReport(ctx, historyReport("scanme.example", base,
			model.PortReport{Port: 21, State: model.PortStateOpen, Service: "ftp", Banner: ""},
		))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Minute),
			model.PortReport{Port: 22, State: model.PortStateOpen, Service: "ssh", Banner: ""},
		)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		output, err := captureStdout(t, func() error {
			return runHistoryDiff(ctx, store, "scanme.example", oldID, false)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(output, "[+] 22/tcp") {
			t.Errorf("expected added ssh port, got: %s", output)
		}
		if !strings.Contains(output, "[-] 21/tcp") {
			t.Errorf("expected removed ftp port, got: %s", output)
		}
	})

	t.Run("returns error for unknown scan ID", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		err := runHistoryDiff(ctx, store, "scanme.example", 9999, false)
		if err == nil {
			t.Fatal("expected error for unknown scan ID")
		}
		if !strings.Contains(err.Error(), "scan with ID 9999 not found") {
			t.Errorf("expected unknown-ID error, got: %v", err)
		}
	})

	t.Run("rejects scan ID belonging to another target", func(t *testing.T) {
		store := newTestStore(t)
		otherID, err := store.SaveReport(ctx, historyReport("other.example", base))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Minute))); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		err = runHistoryDiff(ctx, store, "scanme.example", otherID, false)
		if err == nil {
			t.Fatal("expected error for foreign scan ID")
		}
		if !strings.Contains(err.Error(), "belongs to other.example") {
			t.Errorf("expected ownership error, got: %v", err)
		}
	})

	t.Run("outputs JSON diff", func(t *testing.T) {
		store := newTestStore(t)
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := store.SaveReport(ctx, historyReport("scanme.example", base.Add(time.Minute),
			model.PortReport{Port: 8080, State: model.PortStateOpen, Service: "http-proxy", Banner: ""},
		)); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		output, err := captureStdout(t, func() error {
			return runHistoryDiff(ctx, store, "scanme.example", 0, true)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var diff history.Diff
		if err := json.Unmarshal([]byte(output), &diff); err != nil {
			t.Fatalf("failed to parse JSON diff: %v", err)
		}
		if len(diff.Added) != 1 || diff.Added[0].Port != 8080 {
			t.Errorf("expected port 8080 added, got %+v", diff.Added)
		}
		if len(diff.Removed) != 0 {
			t.Errorf("expected no removed ports, got %+v", diff.Removed)
		}
	})
}

// TestRunHistoryCmdRequiresTarget tests that the history command demands a
// target unless --targets is given.
func TestRunHistoryCmdRequiresTarget(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"history"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing target")
	}
	if !strings.Contains(err.Error(), "target is required") {
		t.Errorf("expected 'target is required' error, got: %v", err)
	}
}
