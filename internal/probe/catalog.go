package probe

import "slices"

// httpGetPayload is the minimal HTTP request sent to web ports. HTTP/1.0
// keeps the exchange to a single response with no keep-alive, and the same
// bytes are reused on port 443 after the TLS handshake.
var httpGetPayload = []byte("GET / HTTP/1.0\r\n\r\n")

// activeProbe is one payload sent to coax a response out of a service that
// does not announce itself. An empty port list marks a wildcard probe tried
// on any port after the port-specific entries are exhausted.
type activeProbe struct {
	name    string
	payload []byte
	ports   []int
}

// appliesTo reports whether the probe targets the given port.
func (p activeProbe) appliesTo(port int) bool {
	return slices.Contains(p.ports, port)
}

// wildcard reports whether the probe may be sent to any port.
func (p activeProbe) wildcard() bool {
	return len(p.ports) == 0
}

// activeProbes is the ordered probe catalog. Entries are tried in table
// order and the first response ends the cycle, so protocol-specific
// payloads precede the generic newline nudge. The payloads are fixed wire
// constants; changing a byte changes what the scanned service replies.
var activeProbes = []activeProbe{
	{
		// SMBv1 Negotiate Protocol request: a NetBIOS session header
		// followed by the classic dialect list ending in "NT LM 0.12".
		// Windows file sharing answers this even when SMBv1 is disabled.
		name: "smb-negotiate",
		payload: []byte(
			"\x00\x00\x00\x85\xff\x53\x4d\x42\x72\x00\x00\x00\x00\x18\x53\xc8" +
				"\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\xff\xfe" +
				"\x00\x00\x00\x00\x00\x62\x00\x02\x50\x43\x20\x4e\x45\x54\x57\x4f" +
				"\x52\x4b\x20\x50\x52\x4f\x47\x52\x41\x4d\x20\x31\x2e\x30\x00\x02" +
				"\x4d\x49\x43\x52\x4f\x53\x4f\x46\x54\x20\x4e\x45\x54\x57\x4f\x52" +
				"\x4b\x53\x20\x31\x2e\x30\x33\x00\x02\x4d\x49\x43\x52\x4f\x53\x4f" +
				"\x46\x54\x20\x4e\x45\x54\x57\x4f\x52\x4b\x53\x20\x33\x2e\x30\x00" +
				"\x02\x4c\x41\x4e\x4d\x41\x4e\x31\x2e\x30\x00\x02\x4c\x4d\x31\x2e" +
				"\x32\x58\x30\x30\x32\x00\x02\x53\x41\x4d\x42\x41\x00\x02\x4e\x54" +
				"\x20\x4c\x41\x4e\x4d\x41\x4e\x20\x31\x2e\x30\x00\x02\x4e\x54\x20" +
				"\x4c\x4d\x20\x30\x2e\x31\x32\x00"),
		ports: []int{139, 445},
	},
	{
		// RDP X.224 connection request (TPKT header + CR TPDU).
		name:    "rdp-connection-request",
		payload: []byte("\x03\x00\x00\x13\x0e\xe0\x00\x00\x00\x00\x00\x01\x00\x08\x00\x03\x00\x00\x00"),
		ports:   []int{3389},
	},
	{
		name:    "http-get",
		payload: httpGetPayload,
		ports:   []int{80, 8000, 8080, 9993},
	},
	{
		// A bare CRLF pair makes line-oriented protocols emit at least an
		// error string, which is often enough to classify them.
		name:    "generic-newline",
		payload: []byte("\r\n\r\n"),
	},
}
