// Package scanner schedules and paces port scans.
//
// # Architecture
//
// The package owns three concerns that sit between the CLI and the
// per-port prober:
//
//   - ScanSettings and TimingProfile: the concurrency/timeout budget for a
//     run, either picked from the -T0..-T5 presets or derived on the fly.
//   - Calibrator: measures the target's round-trip latency against a small
//     fixed port set and derives settings for the auto profile, capped by
//     the process file descriptor limit where the platform exposes one.
//   - Scheduler: fans the port list out to a Prober under the concurrency
//     bound, collects open ports, and reports progress.
//
// Design decision: the Scheduler sees the prober as a one-method interface
// because:
//  1. Scheduling is pure fan-out/fan-in and needs nothing from the probe
//     implementation but its outcome
//  2. Tests drive the scheduler with deterministic fake probers instead of
//     live sockets
//  3. The CLI can wrap or replace the prober (proxying, logging) without
//     the scheduler noticing
package scanner
