// Package main provides the entry point for the portdog CLI.
//
// Portdog is an adaptive TCP port scanner with protocol fingerprinting.
// It finds open ports, identifies the services behind them, and records
// every scan so changes on a host can be tracked over time.
//
// Usage:
//
//	portdog scan <target>
//	portdog history <target>
//
// See --help for all available options.
package main

// main is the entry point for portdog.
func main() {
	Execute()
}
