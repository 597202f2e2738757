// Package fingerprint classifies responses captured from open TCP ports
// into service names and human-readable banners.
//
// The analyzer is a pure function over (response bytes, port number). It
// applies three strategies in order: an SMB signature check on the raw
// bytes, binary classification for non-UTF-8 payloads, and an ordered
// pattern table for text banners with a well-known-port lookup as the
// final fallback.
//
// Design decision: analysis is separated from connection handling (package
// probe) so that classification can be tested without sockets and reused
// against any captured byte stream.
package fingerprint
