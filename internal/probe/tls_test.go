package probe

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"
)

// generateTestCertificate creates a throwaway self-signed certificate for
// loopback TLS fixtures.
func generateTestCertificate(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// startTLSServer starts a loopback TLS listener with a self-signed
// certificate and runs handler on every accepted connection.
func startTLSServer(t *testing.T, handler func(conn net.Conn)) string {
	t.Helper()

	cfg := &tls.Config{
		Certificates: []tls.Certificate{generateTestCertificate(t)},
		MinVersion:   tls.VersionTLS12,
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() {
		ln.Close() //nolint:errcheck // test cleanup
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close() //nolint:errcheck // test server
				handler(conn)
			}()
		}
	}()

	return ln.Addr().String()
}

// dialRaw opens a plain TCP connection to addr for feeding probeTLS
// directly.
func dialRaw(t *testing.T, addr string) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", addr, err)
	}
	t.Cleanup(func() {
		conn.Close() //nolint:errcheck // test cleanup
	})
	return conn
}

// TestAcceptAllCertificates tests the reconnaissance trust policy.
func TestAcceptAllCertificates(t *testing.T) {
	t.Parallel()

	policy := AcceptAllCertificates()

	if policy.Name() != "accept-all" {
		t.Errorf("Name() = %q, expected %q", policy.Name(), "accept-all")
	}

	cfg := policy.ClientConfig("localhost")
	if !cfg.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify to be set")
	}
	if cfg.ServerName != "localhost" {
		t.Errorf("ServerName = %q, expected %q", cfg.ServerName, "localhost")
	}
	if cfg.MinVersion != tls.VersionTLS10 {
		t.Errorf("MinVersion = %d, expected %d", cfg.MinVersion, tls.VersionTLS10)
	}
}

// TestProbeTLSHandshakeFailure tests that a TLS-designated port that does
// not complete a handshake is still fingerprinted as open.
func TestProbeTLSHandshakeFailure(t *testing.T) {
	t.Parallel()

	// A plain TCP server that hangs up immediately can never handshake.
	host, port := startTCPServer(t, func(_ net.Conn) {})
	conn := dialRaw(t, net.JoinHostPort(host, strconv.Itoa(port)))

	p := NewProber(nil, WithTimeout(testTimeout))
	fp := p.probeTLS(context.Background(), conn, 443)

	if fp.Service != "tls" {
		t.Errorf("Service = %q, expected %q", fp.Service, "tls")
	}
	if fp.Banner != "Could not complete TLS handshake" {
		t.Errorf("Banner = %q, expected %q", fp.Banner, "Could not complete TLS handshake")
	}
}

// TestProbeTLSBanner tests fingerprinting of a TLS service that greets on
// its own after the handshake.
func TestProbeTLSBanner(t *testing.T) {
	t.Parallel()

	addr := startTLSServer(t, func(conn net.Conn) {
		conn.Write([]byte("+OK test POP3 ready\r\n")) //nolint:errcheck // test server
	})
	conn := dialRaw(t, addr)

	p := NewProber(nil, WithTimeout(testTimeout))
	fp := p.probeTLS(context.Background(), conn, 995)

	if fp.Service != "pop3s" {
		t.Errorf("Service = %q, expected %q", fp.Service, "pop3s")
	}
	if fp.Banner != "+OK test POP3 ready" {
		t.Errorf("Banner = %q, expected %q", fp.Banner, "+OK test POP3 ready")
	}
}

// TestProbeTLSHTTPSRequest tests that port 443 sends the HTTP request over
// the encrypted channel and classifies the response.
func TestProbeTLSHTTPSRequest(t *testing.T) {
	t.Parallel()

	received := make(chan []byte, 1)
	addr := startTLSServer(t, func(conn net.Conn) {
		buf := make([]byte, 128)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		received <- buf[:n]
		conn.Write([]byte("HTTP/1.1 200 OK\r\nServer: nginx/1.18.0\r\n\r\n")) //nolint:errcheck // test server
	})
	conn := dialRaw(t, addr)

	p := NewProber(nil, WithTimeout(testTimeout))
	fp := p.probeTLS(context.Background(), conn, 443)

	if fp.Service != "http" {
		t.Errorf("Service = %q, expected %q", fp.Service, "http")
	}
	if fp.Banner != "nginx/1.18.0" {
		t.Errorf("Banner = %q, expected %q", fp.Banner, "nginx/1.18.0")
	}

	select {
	case got := <-received:
		if string(got) != "GET / HTTP/1.0\r\n\r\n" {
			t.Errorf("server received %q, expected the HTTP probe", got)
		}
	case <-time.After(time.Second):
		t.Error("server never received the HTTP probe")
	}
}

// TestProbeTLSSilentServer tests that a TLS service that says nothing
// degrades to the port-table service with an empty banner.
func TestProbeTLSSilentServer(t *testing.T) {
	t.Parallel()

	addr := startTLSServer(t, func(conn net.Conn) {
		// Complete the handshake, then stay silent.
		if tc, ok := conn.(*tls.Conn); ok {
			tc.Handshake() //nolint:errcheck // test server
		}
		time.Sleep(time.Second)
	})
	conn := dialRaw(t, addr)

	p := NewProber(nil, WithTimeout(testTimeout))
	fp := p.probeTLS(context.Background(), conn, 993)

	if fp.Service != "imaps" {
		t.Errorf("Service = %q, expected %q", fp.Service, "imaps")
	}
	if fp.Banner != "" {
		t.Errorf("Banner = %q, expected empty", fp.Banner)
	}
}
