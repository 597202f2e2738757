package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nao1215/portdog/internal/config"
	"github.com/nao1215/portdog/internal/history"
	"github.com/nao1215/portdog/internal/model"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "List recorded scans and compare them",
		Long: `History lists the scans recorded for a target and compares them.

Every completed scan is archived in a local SQLite database (unless the
scan ran with --no-history), keyed by the target exactly as it appeared
on the command line. This command reads that archive:
- the default listing shows when each scan ran and what it found
- --diff compares the two most recent scans for a target
- --with-scan-id compares a specific recorded scan against the latest

Examples:
  # List recorded scans for a target
  portdog history scanme.example.com

  # List every target with recorded scans
  portdog history --targets

  # Compare the two most recent scans
  portdog history --diff scanme.example.com

  # Compare the latest scan against scan ID 5
  portdog history --with-scan-id 5 scanme.example.com

  # Machine-readable diff
  portdog history --diff --json scanme.example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("targets", "l", false,
		"List all targets with recorded scans")
	cmd.Flags().BoolP("diff", "d", false,
		"Compare the two most recent scans for the target")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare the latest scan against a specific scan ID (implies --diff)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison result in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listTargets, err := cmd.Flags().GetBool("targets")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var target string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("target is required (use --targets to see recorded targets)")
		}
		target = args[0]
	}

	// Reading history must never create an empty database.
	store, err := history.Open(config.XDGDataDir(), history.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if listTargets {
		return listRecordedTargets(ctx, store)
	}

	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}

	withScanID, err := cmd.Flags().GetInt64("with-scan-id")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if diff || withScanID > 0 {
		return runHistoryDiff(ctx, store, target, withScanID, jsonOutput)
	}
	return listScanHistory(ctx, store, target)
}

// listRecordedTargets prints every target that has at least one recorded scan.
func listRecordedTargets(ctx context.Context, store *history.Store) error {
	targets, err := store.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No recorded scans found in the history database.")
		fmt.Println("\nUse 'portdog scan <target>' to scan a host.")
		return nil
	}

	fmt.Printf("Recorded targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Printf("  • %s\n", target)
	}
	fmt.Println("\nUse 'portdog history <target>' to see the scans for a target.")

	return nil
}

// listScanHistory prints the recorded scans for a target, newest first.
func listScanHistory(ctx context.Context, store *history.Store, target string) error {
	records, err := store.History(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No scan history found for %s\n", target)
		fmt.Println("\nUse 'portdog scan' to scan this target.")
		return nil
	}

	fmt.Printf("Scan history for %s (%d scans):\n\n", target, len(records))
	fmt.Printf("  %-6s  %-20s  %-6s  %-8s  %-10s  %s\n",
		"ID", "Date", "Open", "Scanned", "Duration", "Digest")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, record := range records {
		fmt.Printf("  %-6d  %-20s  %-6d  %-8d  %-10s  %s\n",
			record.ID,
			record.StartedAt.Format("2006-01-02 15:04:05"),
			record.OpenCount,
			record.PortsScanned,
			record.Elapsed.Round(time.Millisecond).String(),
			shortDigest(record.Digest),
		)
	}

	fmt.Println("\nUse 'portdog history --diff <target>' to compare the latest two scans.")
	fmt.Println("Use 'portdog history --with-scan-id <id> <target>' to compare a specific scan against the latest.")

	return nil
}

// shortDigest abbreviates a fingerprint digest for table display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// runHistoryDiff compares the latest scan of a target against an older one.
func runHistoryDiff(ctx context.Context, store *history.Store, target string, withScanID int64, jsonOutput bool) error {
	latest, err := store.LatestReports(ctx, target, 2)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("no scan history found for %s", target)
	}

	// The most recent scan is always the new side of the diff.
	currentReport := latest[0]

	var previousReport *model.ScanReport
	if withScanID > 0 {
		previousReport, err = store.ReportByID(ctx, withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", withScanID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("scan with ID %d not found", withScanID)
		}
		if previousReport.Target != target {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", withScanID, previousReport.Target, target)
		}
	} else {
		if len(latest) < 2 {
			return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(latest))
		}
		previousReport = latest[1]
	}

	diff := history.Compare(previousReport, currentReport)

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(diff)
	}
	return outputDiffText(target, diff)
}

// outputDiffText prints the comparison in human-readable text format.
func outputDiffText(target string, diff *history.Diff) error {
	fmt.Printf("Scan Comparison: %s\n", target)
	fmt.Println(strings.Repeat("=", 60))

	if diff.Unchanged() {
		fmt.Println("\nNo changes: both scans found identical open ports.")
		return nil
	}

	if len(diff.Added) > 0 {
		fmt.Printf("\nNew open ports (%d):\n", len(diff.Added))
		for _, port := range diff.Added {
			fmt.Printf("  [+] %d/tcp  %s\n", port.Port, describeFingerprint(port))
		}
	}

	if len(diff.Removed) > 0 {
		fmt.Printf("\nClosed ports (%d):\n", len(diff.Removed))
		for _, port := range diff.Removed {
			fmt.Printf("  [-] %d/tcp  %s\n", port.Port, describeFingerprint(port))
		}
	}

	if len(diff.Changed) > 0 {
		fmt.Printf("\nChanged fingerprints (%d):\n", len(diff.Changed))
		for _, change := range diff.Changed {
			fmt.Printf("  [~] %d/tcp\n", change.Port)
			fmt.Printf("      before: %s\n", describeFingerprint(change.Old))
			fmt.Printf("      after:  %s\n", describeFingerprint(change.New))
		}
	}

	return nil
}

// describeFingerprint renders a port's service and banner on one line.
func describeFingerprint(port model.PortReport) string {
	if port.Banner == "" {
		return port.Service
	}
	return port.Service + "  " + strings.ReplaceAll(port.Banner, "\n", " ")
}
