package model

import "time"

// PortStateOpen is the only state a reported port can have: closed and
// filtered ports never make it into a report.
const PortStateOpen = "open"

// ScanReport is the result of one scan against a single target.
//
// Design decision: the JSON shape is part of the tool's contract and is
// kept deliberately small: exactly "target" and "open_ports", with the
// service and banner fields always present. Everything else the writers
// and the history store need (resolved address, timings, the pacing
// budget) is carried on the struct but excluded from serialization, so
// machine consumers never depend on it by accident.
type ScanReport struct {
	// Target is the user-supplied target, hostname or IP literal.
	Target string `json:"target"`

	// OpenPorts lists the open ports in ascending port order.
	OpenPorts []PortReport `json:"open_ports"`

	// ResolvedIP is the address the scan actually dialed.
	ResolvedIP string `json:"-"`

	// StartedAt is when the scan began.
	StartedAt time.Time `json:"-"`

	// Elapsed is the wall-clock duration of the scan.
	Elapsed time.Duration `json:"-"`

	// PortsScanned is the number of distinct ports probed.
	PortsScanned int `json:"-"`

	// Concurrency and Timeout are the pacing budget the scan ran under.
	Concurrency int           `json:"-"`
	Timeout     time.Duration `json:"-"`
}

// PortReport is one open port in a scan report.
type PortReport struct {
	// Port is the TCP port number.
	Port int `json:"port"`

	// State is always PortStateOpen.
	State string `json:"state"`

	// Service is the identified service name, "unknown" at worst.
	Service string `json:"service"`

	// Banner is the classification evidence. It may be empty, a captured
	// text banner, a hex rendering of binary data, or a status phrase.
	Banner string `json:"banner"`
}

// NewScanReport creates an empty report for the given target. OpenPorts is
// initialized so an empty report serializes as [] rather than null.
func NewScanReport(target string) *ScanReport {
	return &ScanReport{
		Target:    target,
		OpenPorts: make([]PortReport, 0),
		StartedAt: time.Now(),
	}
}

// AddPort records an open port. Callers append in ascending port order;
// the report preserves whatever order it is given.
func (r *ScanReport) AddPort(port int, service, banner string) {
	r.OpenPorts = append(r.OpenPorts, PortReport{
		Port:    port,
		State:   PortStateOpen,
		Service: service,
		Banner:  banner,
	})
}

// ServiceDistribution counts open ports per service name. It feeds the
// markdown writer's distribution chart.
func (r *ScanReport) ServiceDistribution() map[string]int {
	dist := make(map[string]int, len(r.OpenPorts))
	for _, p := range r.OpenPorts {
		dist[p.Service]++
	}
	return dist
}
