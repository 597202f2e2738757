package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/portdog/internal/config"
	"github.com/nao1215/portdog/internal/history"
	"github.com/nao1215/portdog/internal/log"
	"github.com/nao1215/portdog/internal/model"
	"github.com/nao1215/portdog/internal/probe"
	"github.com/nao1215/portdog/internal/report"
	"github.com/nao1215/portdog/internal/scanner"
	"github.com/spf13/cobra"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// asciiArt is the banner printed before every non-JSON scan. The figlet
// 'g' contains a backtick, which cannot appear inside a Go raw string,
// so the line is spliced together.
const asciiArt = `
 ____            _     ____
|  _ \ ___  _ __| |_  |  _ \  ___   __ _
| |_) / _ \| '__| __| | | | |/ _ \ / _` + "`" + ` |
|  __/ (_) | |  | |_  | |_| | (_) | (_| |
|_|   \___/|_|   \__| |____/ \___/ \__, |
                                   |___/
A lightning-fast port scanner built with Go.
`

// Narration styles. These honor the package-global color.NoColor, so
// piped output stays plain while terminals get the full palette.
var (
	colorBold     = color.New(color.Bold)
	colorCyanBold = color.New(color.FgCyan, color.Bold)
	colorCyan     = color.New(color.FgCyan)
	colorGreen    = color.New(color.FgGreen)
	colorYellow   = color.New(color.FgYellow)
	colorBlue     = color.New(color.FgBlue)
	colorRed      = color.New(color.FgRed)
	colorDim      = color.New(color.Faint)
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <target>",
		Short: "Scan a target's TCP ports and fingerprint the services",
		Long: `Scan probes a target's TCP ports and fingerprints the open ones.

Each open port is classified in layers: a passive banner read first,
then protocol-specific probes (SMB, RDP, HTTP) for services that stay
silent, then pattern matching over whatever came back, and finally the
well-known port table. Ports 443, 993, and 995 are probed through a TLS
handshake that accepts any certificate, so self-signed services are
fingerprinted too.

The timing profile (-T0 through -T5) sets the concurrency and timeout
budget. -T4 measures the target's latency first and derives the budget
from it. Completed scans are archived in a local SQLite database unless
--no-history is given.

Examples:
  # Scan the well-known ports of a host with default timing
  portdog scan 192.168.1.1

  # Calibrate the pacing against the target before scanning
  portdog scan -T4 192.168.1.1

  # Scan specific ports on a hostname
  portdog scan -p 22,80,443,8080 scanme.example.com

  # Scan all 65535 ports with fixed aggressive timing
  portdog scan -p - -T5 192.168.1.1

  # Machine-readable report on stdout
  portdog scan --json 192.168.1.1

  # Route every probe through a SOCKS5 proxy, politely
  portdog scan --proxy 127.0.0.1:9050 -T2 target.example.com

Configuration file (.portdog.yaml) example:
  defaults:
    ports: "1-1024"
    timing: 3
  targets:
    router.lan:
      ports: "1-8080"
      timing: 1
      timeout: "2s"`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Port selection and pacing flags
	cmd.Flags().StringP("ports", "p", config.DefaultPortSpec,
		"Ports to scan (e.g. 80,443 | 1-1024 | - for all ports)")
	cmd.Flags().IntP("timing", "T", config.DefaultTimingProfile,
		"Timing template 0-5; higher is faster (4 calibrates against the target)")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Override the per-connection timeout chosen by the timing profile")
	cmd.Flags().IntP("concurrency", "C", 0,
		"Override the number of concurrent probes chosen by the timing profile")
	cmd.Flags().Int("rate", config.DefaultRate,
		"Maximum connection attempts per second (0 = unlimited)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for all probe connections (e.g. 127.0.0.1:9050)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .portdog.yaml or XDG config)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report, suppressing all other output")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this scan in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags and the config file
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Expand the port specification
	cfg.Ports, err = config.ParsePortSpec(cfg.PortSpec)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the config file.
// Precedence: explicit flags > per-target config > config defaults > builtins.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Target = args[0]

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-target configurations from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.TargetConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.TargetConfigs = &config.File{
			Targets: make(map[string]config.TargetConfig),
		}
	}

	if err := applyTargetConfig(cfg, cfg.TargetConfigs.GetTargetConfig(cfg.Target)); err != nil {
		return nil, err
	}
	return cfg, applyFlagOverrides(cmd, cfg)
}

// applyTargetConfig copies config-file settings for the target onto cfg.
// Flags are applied afterwards, so an explicit flag always wins.
func applyTargetConfig(cfg *config.Config, tc config.TargetConfig) error {
	if tc.Ports != "" {
		cfg.PortSpec = tc.Ports
	}
	if tc.Timing != nil {
		cfg.TimingProfile = *tc.Timing
	}
	if tc.Timeout != "" {
		timeout, err := time.ParseDuration(tc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q in config file: %w", tc.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if tc.Concurrency != 0 {
		cfg.Concurrency = tc.Concurrency
	}
	if tc.Rate != nil {
		cfg.Rate = *tc.Rate
	}
	if tc.Proxy != "" {
		cfg.ProxyAddress = tc.Proxy
	}
	return nil
}

// applyFlagOverrides applies CLI flags on top of the file-derived config.
// Flags that overlap with config-file settings only override when the user
// actually set them, so a file value survives an untouched flag default.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	if cmd.Flags().Changed("ports") {
		cfg.PortSpec, err = cmd.Flags().GetString("ports")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("timing") {
		cfg.TimingProfile, err = cmd.Flags().GetInt("timing")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("rate") {
		cfg.Rate, err = cmd.Flags().GetInt("rate")
		if err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("proxy") {
		cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
		if err != nil {
			return err
		}
	}

	// Report flags have no config-file counterpart; read them directly.
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	cfg.NoHistory, err = cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}

	return nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// JSON mode prints nothing but the report itself.
	quiet := cfg.JSONReport

	if !quiet {
		fmt.Println(colorCyanBold.Sprint(asciiArt))
	}

	dialer, err := buildDialer(cfg)
	if err != nil {
		return err
	}

	ip, err := scanner.ResolveTarget(ctx, cfg.Target)
	if err != nil {
		return err
	}

	logger.Info("starting scan",
		"target", cfg.Target,
		"resolvedIP", ip,
		"ports", len(cfg.Ports),
		"proxy", cfg.ProxyAddress,
	)

	// Open the history database up front so a misconfigured data
	// directory fails before any packet is sent.
	var store *history.Store
	if !cfg.NoHistory {
		store, err = history.Open(config.XDGDataDir(), history.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer store.Close()
		logger.Info("history database opened", "dir", config.XDGDataDir())
	}

	settings := resolveSettings(ctx, cfg, ip, dialer, logger, quiet)

	if !quiet {
		fmt.Printf("\n%s %s %s %s\n",
			colorGreen.Sprint("Scanning"),
			colorBold.Sprint(cfg.Target),
			colorDim.Sprint("with"),
			colorBold.Sprintf("%d concurrent tasks...", settings.Concurrency),
		)
	}

	prober := probe.NewProber(dialer,
		probe.WithTimeout(settings.Timeout),
		probe.WithLogger(logger),
	)

	opts := []scanner.SchedulerOption{scanner.WithSchedulerLogger(logger)}
	if cfg.Rate > 0 {
		opts = append(opts, scanner.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate)))
	}
	if !quiet {
		opts = append(opts, scanner.WithProgress(func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\r%d/%d ports scanned", completed, total)
		}))
	}

	scanReport := model.NewScanReport(cfg.Target)
	scanReport.ResolvedIP = ip
	scanReport.PortsScanned = len(cfg.Ports)
	scanReport.Concurrency = settings.Concurrency
	scanReport.Timeout = settings.Timeout

	results, scanErr := scanner.NewScheduler(prober, settings, opts...).Scan(ctx, ip, cfg.Ports)
	if !quiet {
		fmt.Fprintln(os.Stderr) // move past the progress counter
	}
	if scanErr != nil {
		return scanErr
	}
	scanReport.Elapsed = time.Since(scanReport.StartedAt)

	for _, result := range results {
		scanReport.AddPort(result.Port, result.Fingerprint.Service, result.Fingerprint.Banner)
	}

	logger.Info("scan finished",
		"target", cfg.Target,
		"openPorts", len(scanReport.OpenPorts),
		"elapsed", scanReport.Elapsed,
	)

	if err := outputReport(cfg, scanReport); err != nil {
		return err
	}

	// A history failure should never cost the user their scan results.
	if err := saveScanReport(ctx, store, scanReport, logger); err != nil {
		logger.Error("failed to save scan report", "target", cfg.Target, "error", err)
	}

	return nil
}

// buildDialer returns the dialer used for every probe and calibration
// connection: a SOCKS5 client when --proxy is set, otherwise nil so the
// prober and calibrator fall back to a plain net.Dialer.
func buildDialer(cfg *config.Config) (proxy.Dialer, error) {
	if cfg.ProxyAddress == "" {
		return nil, nil
	}

	dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddress, nil, &net.Dialer{})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", cfg.ProxyAddress, err)
	}
	return dialer, nil
}

// resolveSettings turns the timing profile (or calibration, for the
// aggressive profile) into the final pacing budget, applying explicit
// flag overrides last.
func resolveSettings(ctx context.Context, cfg *config.Config, host string, dialer proxy.Dialer, logger *slog.Logger, quiet bool) scanner.ScanSettings {
	profile := scanner.TimingProfile(cfg.TimingProfile)

	if !quiet {
		fmt.Printf("%s %s\n", colorBold.Sprint("Timing Profile:"), profileStyle(profile).Sprint(profile.String()))
	}

	settings, ok := profile.Settings()
	if !ok {
		settings = calibrateSettings(ctx, host, dialer, logger, quiet)
	}

	// Explicit overrides beat the profile and the calibration alike.
	if cfg.Concurrency > 0 {
		settings.Concurrency = cfg.Concurrency
	}
	if cfg.Timeout > 0 {
		settings.Timeout = cfg.Timeout
	}
	return settings
}

// calibrateSettings probes the target and narrates the outcome.
func calibrateSettings(ctx context.Context, host string, dialer proxy.Dialer, logger *slog.Logger, quiet bool) scanner.ScanSettings {
	if !quiet {
		fmt.Println(colorCyan.Sprint("Probing target to determine optimal settings..."))
	}

	cal := scanner.NewCalibrator(dialer, scanner.WithCalibratorLogger(logger)).Calibrate(ctx, host)

	if quiet {
		return cal.Settings
	}
	if cal.Unresponsive {
		fmt.Println(colorYellow.Sprint("Warning: Target did not respond to probes. Using conservative default settings."))
		return cal.Settings
	}
	if cal.FDCapped {
		fmt.Println(colorYellow.Sprintf("Warning: Capping concurrency at %d to respect file descriptor limit.", cal.FDCap))
	}
	fmt.Printf("%s%s%s%s%s\n",
		colorGreen.Sprint("Probe complete. "),
		colorDim.Sprint("Average RTT: "),
		colorBold.Sprintf("%v. ", cal.MeanRTT),
		colorDim.Sprint("Using: "),
		colorBold.Sprintf("concurrency=%d, timeout=%v", cal.Settings.Concurrency, cal.Settings.Timeout),
	)
	return cal.Settings
}

// profileStyle returns the color for a profile's name, following the
// escalating-aggressiveness palette of the scan header.
func profileStyle(profile scanner.TimingProfile) *color.Color {
	switch profile {
	case scanner.TimingParanoid, scanner.TimingSneaky:
		return colorDim
	case scanner.TimingPolite:
		return colorBlue
	case scanner.TimingAggressive:
		return colorYellow
	case scanner.TimingInsane:
		return colorRed
	default:
		return colorGreen
	}
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, scanReport *model.ScanReport) error {
	// Determine output destination
	var output *os.File
	toFile := cfg.ReportFile != ""
	if toFile {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		// Reports describe a network's attack surface and should only be
		// readable by the owner
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		// Color only when the table goes to a terminal; files get plain text.
		writer = report.NewTableWriter(output, report.WithColor(!toFile && !color.NoColor))
	}

	_, err := writer.Write(scanReport)
	return err
}

// saveScanReport saves the scan report to the history database.
// If store is nil (history disabled), this function is a no-op.
func saveScanReport(ctx context.Context, store *history.Store, scanReport *model.ScanReport, logger *slog.Logger) error {
	if store == nil {
		return nil
	}

	id, err := store.SaveReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to history", "target", scanReport.Target, "scanID", id)
	return nil
}
