package fingerprint

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxHexBytes is the number of bytes of a binary response rendered in hex
// before the dump is cut off. Banners are for humans; anyone who needs the
// full payload should capture traffic instead.
const maxHexBytes = 24

// Fingerprint is the analyzer's verdict for a single open port.
//
// Service is never empty; when nothing could be identified it falls back to
// the well-known name for the port, or "unknown". Banner carries whatever
// evidence supported the verdict: a captured text banner, a hex rendering
// of binary data, or a status phrase such as "[unresponsive]".
type Fingerprint struct {
	// Service is the identified service name (e.g. "ssh", "http", "smb").
	Service string

	// Banner is the supporting evidence, flattened for display.
	Banner string
}

// matcher pairs a service name with a pattern recognized in decoded
// response text.
type matcher struct {
	// service is the name reported when the pattern matches.
	service string

	// pattern is matched against the raw (untrimmed) response text.
	pattern *regexp.Regexp
}

// matchers is the ordered banner pattern table.
//
// Design decision: order encodes priority and the first match wins:
//  1. Self-announcing protocols (SSH) are checked before request/response
//     ones, since their banners are unambiguous
//  2. An HTTP Server header is preferred over the bare HTTP version token
//     because it names the implementation, not just the protocol
//  3. The 220 greeting is shared by FTP and SMTP; the keyword in the
//     greeting text disambiguates
var matchers = []matcher{
	{service: "ssh", pattern: regexp.MustCompile(`(?i)^SSH-2.0-([^\s]+)`)},
	{service: "http", pattern: regexp.MustCompile(`Server: ([^\r\n]+)`)},
	{service: "http", pattern: regexp.MustCompile(`HTTP/\d\.\d`)},
	{service: "ftp", pattern: regexp.MustCompile(`(?i)^220 .*FTP`)},
	{service: "smtp", pattern: regexp.MustCompile(`(?i)^220 .*SMTP`)},
}

// smbMagic is the SMBv1 protocol identifier that follows the NetBIOS
// session header in a Negotiate Protocol response.
var smbMagic = []byte{0xff, 'S', 'M', 'B'}

// Analyze classifies a response read from the given port. It is pure and
// never fails: undecodable input degrades to a binary classification and
// unrecognized input degrades to the well-known service for the port.
func Analyze(data []byte, port int) Fingerprint {
	// SMB responses start with a NetBIOS session header whose first two
	// bytes are zero, so the check must run before any text decoding.
	if (port == 139 || port == 445) &&
		bytes.HasPrefix(data, []byte{0x00, 0x00}) &&
		bytes.Contains(data, smbMagic) {
		return Fingerprint{
			Service: "smb",
			Banner:  fmt.Sprintf("[SMB Response: %d bytes] %s", len(data), hexDump(data)),
		}
	}

	if !utf8.Valid(data) {
		return Fingerprint{
			Service: ServiceName(port),
			Banner:  fmt.Sprintf("[Binary data: %d bytes] %s", len(data), hexDump(data)),
		}
	}

	return analyzeText(string(data), port)
}

// analyzeText classifies a decoded text response against the matcher table.
func analyzeText(text string, port int) Fingerprint {
	for _, m := range matchers {
		sub := m.pattern.FindStringSubmatch(text)
		if sub == nil {
			continue
		}

		banner := ""
		if len(sub) > 1 {
			banner = strings.TrimSpace(sub[1])
		}
		if banner == "" {
			// Patterns without a capture group (or with an empty one)
			// still matched; show what the service actually said.
			banner = firstLine(text)
		}
		return Fingerprint{Service: m.service, Banner: banner}
	}

	return Fingerprint{
		Service: ServiceName(port),
		Banner:  firstLine(strings.TrimSpace(text)),
	}
}

// firstLine returns text up to the first line break, tolerating both
// "\n" and "\r\n" endings.
func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSuffix(line, "\r")
}

// hexDump renders up to maxHexBytes bytes as space-separated uppercase hex
// pairs, appending "..." when the input was truncated.
func hexDump(data []byte) string {
	var sb strings.Builder
	for _, b := range data[:min(len(data), maxHexBytes)] {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	if len(data) > maxHexBytes {
		sb.WriteString("...")
	}
	return strings.TrimRight(sb.String(), " ")
}
