package scanner

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/portdog/internal/fingerprint"
)

// Prober establishes a connection to one port and fingerprints whatever
// answers. The boolean is false when the port is closed or filtered.
type Prober interface {
	Probe(ctx context.Context, host string, port int) (fingerprint.Fingerprint, bool)
}

// ProgressFunc receives completion counts as a scan advances. It is called
// once per port, from the goroutine that finished the probe, so
// implementations touching shared state must synchronize.
type ProgressFunc func(completed, total int)

// PortResult pairs an open port with its fingerprint.
type PortResult struct {
	// Port is the TCP port number found open.
	Port int

	// Fingerprint is the analyzer's verdict for the port.
	Fingerprint fingerprint.Fingerprint
}

// Scheduler fans a port list out to a Prober under a fixed concurrency
// bound and collects the open ports.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each port gets its own goroutine, but only Concurrency goroutines run
// simultaneously, and a context cancellation stops the launch of new ones.
type Scheduler struct {
	// prober performs the per-port network work.
	prober Prober

	// settings is the pacing budget for the run.
	settings ScanSettings

	// limiter optionally throttles probe launches. Nil means unthrottled.
	limiter *rate.Limiter

	// progress optionally observes per-port completion.
	progress ProgressFunc

	// logger is used for scan-level logging.
	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLimiter throttles probe launches with the given limiter. Each probe
// waits for one token before dialing.
func WithLimiter(limiter *rate.Limiter) SchedulerOption {
	return func(s *Scheduler) {
		s.limiter = limiter
	}
}

// WithProgress registers a per-port completion callback.
func WithProgress(fn ProgressFunc) SchedulerOption {
	return func(s *Scheduler) {
		s.progress = fn
	}
}

// WithSchedulerLogger sets the logger used for scan-level logging.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a Scheduler that probes through the given prober
// within the given budget. A concurrency below one is raised to one so a
// pathological budget degrades to a serial scan instead of a deadlock.
func NewScheduler(prober Prober, settings ScanSettings, opts ...SchedulerOption) *Scheduler {
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}

	s := &Scheduler{
		prober:   prober,
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan probes every port in ports exactly once and returns the open ones
// sorted ascending by port number. The input is expected to be distinct,
// as produced by config.ParsePortSpec; each distinct port therefore
// appears at most once in the result regardless of completion order.
//
// A closed or unresponsive port never aborts the others. The only error a
// scan can return is a context cancellation, and the results collected up
// to that point accompany it.
func (s *Scheduler) Scan(ctx context.Context, host string, ports []int) ([]PortResult, error) {
	s.logger.Debug("starting scan",
		"host", host,
		"ports", len(ports),
		"concurrency", s.settings.Concurrency,
		"timeout", s.settings.Timeout,
	)

	var (
		mu      sync.Mutex
		results []PortResult
	)
	var completed atomic.Int64
	total := len(ports)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)

	for _, port := range ports {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			fp, open := s.prober.Probe(ctx, host, port)
			if open {
				mu.Lock()
				results = append(results, PortResult{Port: port, Fingerprint: fp})
				mu.Unlock()
			}

			if s.progress != nil {
				s.progress(int(completed.Add(1)), total)
			}
			return nil
		})
	}

	err := g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Port < results[j].Port })

	s.logger.Debug("scan finished", "open", len(results), "completed", completed.Load())

	return results, err
}
