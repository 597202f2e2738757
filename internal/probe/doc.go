// Package probe establishes TCP connections to individual ports and
// captures enough of each service's preamble to fingerprint it.
//
// # Architecture
//
// The Prober owns one connection per call. Ports conventionally carrying
// TLS (443, 993, 995) are upgraded with an accept-everything certificate
// policy before reading; all other ports follow the cleartext path:
// a passive read for self-announcing services, then the active probe
// catalog (port-specific payloads first, wildcard payloads last). The
// captured bytes are handed to package fingerprint for classification.
//
// Design decision: the prober reports (Fingerprint, bool) rather than an
// error because:
//  1. A refused or timed-out connect is the expected outcome for most of
//     a scan's ports, not a failure the caller should branch on
//  2. Every established connection yields a usable fingerprint, however
//     degraded, so there is no partial-success state to express
//  3. Keeping the signature small lets the scheduler treat probing as a
//     pure fan-out operation
//
// All network steps share a single configurable timeout applied
// independently to each connect, TLS handshake, write, and read.
package probe
