package probe

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/portdog/internal/fingerprint"
)

// readBufferSize bounds every banner read. Fingerprinting needs only the
// connection preamble; anything past one buffer is ignored.
const readBufferSize = 2048

// DefaultTimeout is the per-step timeout used when the caller does not
// configure one.
const DefaultTimeout = 800 * time.Millisecond

// tlsPorts are the ports dispatched to the TLS sub-path. Dispatch is by
// convention only and never falls back: a TLS-designated port that speaks
// cleartext is reported as a failed handshake, not re-probed.
var tlsPorts = map[int]bool{
	443: true,
	993: true,
	995: true,
}

// Prober dials one target port at a time and captures the service preamble.
//
// Design decision: the dialer is injected as a proxy.Dialer rather than
// constructed internally because:
//  1. SOCKS5 proxying (the --proxy flag) swaps the transport without
//     touching probe logic
//  2. Tests substitute dialers that reach fixtures on loopback
//  3. The zero-dependency default (&net.Dialer{}) still satisfies it
type Prober struct {
	// dialer establishes the TCP connections.
	dialer proxy.Dialer

	// timeout bounds each connect, TLS handshake, write, and read.
	timeout time.Duration

	// trust decides how TLS server certificates are treated.
	trust TrustPolicy

	// logger receives per-probe debug output.
	logger *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the shared per-step timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithTrustPolicy replaces the certificate policy used on TLS ports.
func WithTrustPolicy(policy TrustPolicy) Option {
	return func(p *Prober) {
		if policy != nil {
			p.trust = policy
		}
	}
}

// WithLogger sets the logger used for per-probe debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProber creates a Prober that dials through the given dialer. A nil
// dialer falls back to a plain net.Dialer.
func NewProber(dialer proxy.Dialer, opts ...Option) *Prober {
	p := &Prober{
		dialer:  dialer,
		timeout: DefaultTimeout,
		trust:   AcceptAllCertificates(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dialer == nil {
		p.dialer = &net.Dialer{}
	}
	return p
}

// Probe connects to host:port and classifies the service behind it. The
// boolean is false when no TCP connection could be established within the
// timeout; such ports are closed or filtered and carry no fingerprint.
func (p *Prober) Probe(ctx context.Context, host string, port int) (fingerprint.Fingerprint, bool) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := p.dialWithContext(ctx, addr)
	if err != nil {
		return fingerprint.Fingerprint{}, false
	}
	defer conn.Close() //nolint:errcheck // read-only connection, nothing left to flush

	if tlsPorts[port] {
		return p.probeTLS(ctx, conn, port), true
	}
	return p.probeCleartext(conn, port), true
}

// dialWithContext dials a connection respecting context cancellation.
//
// Design decision: We implement our own context-aware dial because
// net.Dialer.DialContext requires a network and address, but we need
// to support custom dialers (like SOCKS5 proxies). Dialers that provide
// DialContext are used directly.
func (p *Prober) dialWithContext(ctx context.Context, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if cd, ok := p.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", address)
	}

	// Use a channel to receive the connection result
	type dialResult struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := p.dialer.Dial("tcp", address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		// The dial goroutine may still complete; close its connection so a
		// full-range scan does not accumulate abandoned descriptors.
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

// probeCleartext captures a banner from a non-TLS port: a passive read
// first, then the active probe catalog, all on the same connection.
func (p *Prober) probeCleartext(conn net.Conn, port int) fingerprint.Fingerprint {
	// Protocols like SSH, FTP, and SMTP announce themselves unprompted.
	if data := p.read(conn); len(data) > 0 {
		return fingerprint.Analyze(data, port)
	}

	for _, pr := range activeProbes {
		if !pr.appliesTo(port) {
			continue
		}
		if data := p.send(conn, pr); data != nil {
			return fingerprint.Analyze(data, port)
		}
	}

	for _, pr := range activeProbes {
		if !pr.wildcard() {
			continue
		}
		if data := p.send(conn, pr); data != nil {
			return fingerprint.Analyze(data, port)
		}
	}

	// The connect itself proved the port open even though nothing answered.
	return fingerprint.Fingerprint{
		Service: fingerprint.ServiceName(port),
		Banner:  "[unresponsive]",
	}
}

// send writes one probe payload and reads the response. A nil result means
// the write failed or nothing came back in time; the caller moves on to
// the next catalog entry.
func (p *Prober) send(conn net.Conn, pr activeProbe) []byte {
	if err := conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return nil
	}
	if _, err := conn.Write(pr.payload); err != nil {
		p.logger.Debug("probe write failed", "probe", pr.name, "error", err)
		return nil
	}
	return p.read(conn)
}

// read performs one bounded read: a fixed-size buffer with the shared
// timeout as deadline and no retry. Timeouts, resets, and empty reads all
// mean "no data here"; a positive byte count is a response, even when it
// arrived alongside an error such as EOF.
func (p *Prober) read(conn net.Conn) []byte {
	if err := conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
		return nil
	}

	buf := make([]byte, readBufferSize)
	n, _ := conn.Read(buf) //nolint:errcheck // n <= 0 covers every failure mode here
	if n <= 0 {
		return nil
	}
	return buf[:n]
}
