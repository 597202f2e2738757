package scanner

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"
)

const (
	// calibrateTimeout bounds each calibration connect. Two seconds is
	// enough to catch slow-but-alive targets without stalling startup.
	calibrateTimeout = 2 * time.Second

	// rttMultiplier and timeoutFloor turn a mean RTT into a probe timeout:
	// five round trips of headroom plus a fixed floor for handshake cost.
	rttMultiplier = 5
	timeoutFloor  = 400 * time.Millisecond

	// minTimeout and maxTimeout clamp the derived timeout so pathological
	// RTT samples cannot produce an unusable budget.
	minTimeout = 500 * time.Millisecond
	maxTimeout = 4 * time.Second

	// fdSafetyMargin is how many descriptors are left free for everything
	// that is not a probe socket: stdio, DNS, the history database.
	fdSafetyMargin = 50

	// FallbackConcurrency and FallbackTimeout are the conservative budget
	// used when the target answers none of the calibration probes.
	FallbackConcurrency = 500
	FallbackTimeout     = 3 * time.Second
)

// calibrationPorts is the fixed sample set: a mix of common services and
// ports scanners traditionally watch, so at least one usually answers.
var calibrationPorts = []int{80, 443, 22, 53, 3389, 8080, 1337, 31337}

// Calibration records how auto-derived settings came about, so the CLI can
// narrate the decision and tests can assert on it.
type Calibration struct {
	// Settings is the derived (or fallback) pacing budget.
	Settings ScanSettings

	// Samples is the number of calibration connects that succeeded.
	Samples int

	// MeanRTT is the arithmetic mean of the successful connects'
	// round-trip times. Zero when Samples is zero.
	MeanRTT time.Duration

	// Unresponsive is true when no calibration port answered and the
	// conservative fallback budget was used.
	Unresponsive bool

	// FDCapped is true when Settings.Concurrency was lowered to respect
	// the process file descriptor limit; FDCap is the applied ceiling.
	FDCapped bool
	FDCap    int
}

// FDLimitFunc reports the soft limit on open file descriptors for the
// current process. ok is false on platforms without that introspection,
// which leaves concurrency uncapped.
type FDLimitFunc func() (limit uint64, ok bool)

// Calibrator derives a pacing budget from a target's observed latency.
//
// Design decision: the calibrator is a separate type from the Scheduler
// because it runs before any settings exist, and both its dialer and its
// file-descriptor-limit probe are injected so the derivation logic stays
// testable and platform-independent.
type Calibrator struct {
	// dialer establishes the calibration connections.
	dialer proxy.Dialer

	// fdLimit reports the open-file soft limit.
	fdLimit FDLimitFunc

	// logger receives per-sample debug output.
	logger *slog.Logger
}

// CalibratorOption configures a Calibrator.
type CalibratorOption func(*Calibrator)

// WithFDLimit replaces the file-descriptor-limit probe. A hook returning
// ok=false disables concurrency capping.
func WithFDLimit(fn FDLimitFunc) CalibratorOption {
	return func(c *Calibrator) {
		if fn != nil {
			c.fdLimit = fn
		}
	}
}

// WithCalibratorLogger sets the logger used for per-sample debug output.
func WithCalibratorLogger(logger *slog.Logger) CalibratorOption {
	return func(c *Calibrator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCalibrator creates a Calibrator that measures through the given
// dialer. A nil dialer falls back to a plain net.Dialer.
func NewCalibrator(dialer proxy.Dialer, opts ...CalibratorOption) *Calibrator {
	c := &Calibrator{
		dialer:  dialer,
		fdLimit: SoftFDLimit,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = &net.Dialer{}
	}
	return c
}

// Calibrate measures round-trip latency against the fixed calibration port
// set and derives a pacing budget. It never fails: an entirely silent
// target yields the conservative fallback with Unresponsive set.
func (c *Calibrator) Calibrate(ctx context.Context, host string) Calibration {
	var (
		mu   sync.Mutex
		rtts []time.Duration
	)

	// The sample set is eight ports; no concurrency bound is needed.
	g, ctx := errgroup.WithContext(ctx)
	for _, port := range calibrationPorts {
		address := net.JoinHostPort(host, strconv.Itoa(port))
		g.Go(func() error {
			start := time.Now()
			conn, err := c.dialConn(ctx, address)
			if err != nil {
				// Closed and filtered ports say nothing about latency.
				return nil
			}
			rtt := time.Since(start)
			conn.Close() //nolint:errcheck // sample taken, connection no longer needed

			c.logger.Debug("calibration sample", "address", address, "rtt", rtt)

			mu.Lock()
			rtts = append(rtts, rtt)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // the sampling goroutines never return errors

	if len(rtts) == 0 {
		return Calibration{
			Settings:     ScanSettings{Concurrency: FallbackConcurrency, Timeout: FallbackTimeout},
			Unresponsive: true,
		}
	}

	var total time.Duration
	for _, rtt := range rtts {
		total += rtt
	}
	mean := total / time.Duration(len(rtts))

	cal := Calibration{
		Settings: settingsForRTT(mean),
		Samples:  len(rtts),
		MeanRTT:  mean,
	}

	if limit, ok := c.fdLimit(); ok {
		safe := 0
		if limit > fdSafetyMargin {
			safe = int(limit - fdSafetyMargin)
		}
		if cal.Settings.Concurrency > safe {
			cal.Settings.Concurrency = safe
			cal.FDCapped = true
			cal.FDCap = safe
		}
	}

	return cal
}

// settingsForRTT converts a measured mean round-trip time into a pacing
// budget: the timeout leaves several round trips of headroom, and the
// concurrency tier rises as the target proves itself fast.
func settingsForRTT(mean time.Duration) ScanSettings {
	timeout := mean*rttMultiplier + timeoutFloor
	if timeout < minTimeout {
		timeout = minTimeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	concurrency := 1000
	switch {
	case mean < 100*time.Millisecond:
		concurrency = 2500
	case mean < 250*time.Millisecond:
		concurrency = 1800
	}

	return ScanSettings{Concurrency: concurrency, Timeout: timeout}
}

// dialConn dials a calibration connection respecting context cancellation.
//
// Design decision: We implement our own context-aware dial because
// net.Dialer.DialContext requires a network and address, but we need
// to support custom dialers (like SOCKS5 proxies). Dialers that provide
// DialContext are used directly.
func (c *Calibrator) dialConn(ctx context.Context, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, calibrateTimeout)
	defer cancel()

	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", address)
	}

	// Use a channel to receive the connection result
	type dialResult struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial("tcp", address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if result := <-resultCh; result.conn != nil {
				result.conn.Close() //nolint:errcheck // abandoned late dial
			}
		}()
		return nil, ctx.Err()
	case result := <-resultCh:
		return result.conn, result.err
	}
}
