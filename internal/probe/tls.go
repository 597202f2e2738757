package probe

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/nao1215/portdog/internal/fingerprint"
)

// tlsServerName is the SNI value offered during handshakes. Targets are
// dialed by address, so a fixed placeholder keeps the ClientHello uniform
// across every port.
const tlsServerName = "localhost"

// TrustPolicy decides how TLS server certificates are treated when the
// prober upgrades a connection.
//
// Design decision: certificate handling is a named, injectable policy
// rather than a boolean on the Prober because:
//  1. Accepting every certificate is a deliberate reconnaissance choice
//     that should be visible at the call site, never a silent default
//  2. Stricter policies (pinning, CA validation) can be added without
//     touching the probe flow
//  3. Tests can substitute a policy and observe what it was asked for
type TrustPolicy interface {
	// Name identifies the policy in logs.
	Name() string

	// ClientConfig returns the TLS configuration implementing the policy
	// for a handshake offering the given server name.
	ClientConfig(serverName string) *tls.Config
}

// acceptAll is the reconnaissance trust policy: every certificate chain
// and signature is accepted without validation.
type acceptAll struct{}

// AcceptAllCertificates returns the trust policy that accepts any server
// certificate. The prober's goal is to observe a service, not to trust
// it, so self-signed, expired, and mismatched certificates must all get
// past the handshake.
func AcceptAllCertificates() TrustPolicy {
	return acceptAll{}
}

// Name identifies the policy in logs.
func (acceptAll) Name() string { return "accept-all" }

// ClientConfig builds a configuration that skips verification entirely and
// tolerates legacy protocol versions; a scanner meets far older TLS stacks
// than a browser does.
func (acceptAll) ClientConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true, //nolint:gosec // identification, not trust: see AcceptAllCertificates
		MinVersion:         tls.VersionTLS10,
	}
}

// probeTLS upgrades an established connection to TLS and fingerprints what
// answers. A failed handshake still reports a fingerprint: something did
// accept the TCP connection on a TLS-designated port.
func (p *Prober) probeTLS(ctx context.Context, conn net.Conn, port int) fingerprint.Fingerprint {
	hsCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tlsConn := tls.Client(conn, p.trust.ClientConfig(tlsServerName))
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		p.logger.Debug("tls handshake failed", "port", port, "error", err)
		return fingerprint.Fingerprint{
			Service: "tls",
			Banner:  "Could not complete TLS handshake",
		}
	}

	// HTTPS servers speak only when spoken to; everything else on a TLS
	// port (IMAPS, POP3S) greets on its own.
	if port == 443 {
		if err := tlsConn.SetWriteDeadline(time.Now().Add(p.timeout)); err == nil {
			_, _ = tlsConn.Write(httpGetPayload) //nolint:errcheck // a failed send still leaves the read worth trying
		}
	}

	// An empty read is fine: the analyzer degrades it to the well-known
	// service for the port with an empty banner.
	return fingerprint.Analyze(p.read(tlsConn), port)
}
