package history

import (
	"sort"

	"github.com/nao1215/portdog/internal/model"
)

// Diff describes how the open ports of a target changed between two scans.
type Diff struct {
	// Added lists ports open in the new scan but not the old one.
	Added []model.PortReport `json:"added"`

	// Removed lists ports open in the old scan but not the new one.
	Removed []model.PortReport `json:"removed"`

	// Changed lists ports open in both scans whose service or banner differs.
	Changed []FingerprintChange `json:"changed"`

	// OldDigest is the fingerprint digest of the older scan.
	OldDigest string `json:"old_digest"`

	// NewDigest is the fingerprint digest of the newer scan.
	NewDigest string `json:"new_digest"`
}

// FingerprintChange records a port whose fingerprint differs between scans.
type FingerprintChange struct {
	// Port is the TCP port number.
	Port int `json:"port"`

	// Old is the port's fingerprint in the older scan.
	Old model.PortReport `json:"old"`

	// New is the port's fingerprint in the newer scan.
	New model.PortReport `json:"new"`
}

// Unchanged reports whether the two scans found identical open ports.
func (d *Diff) Unchanged() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare computes the difference between two scan reports.
// The digests short-circuit the comparison: identical digests mean
// identical port sets, so the walk only happens when something changed.
func Compare(oldReport, newReport *model.ScanReport) *Diff {
	diff := &Diff{
		Added:     make([]model.PortReport, 0),
		Removed:   make([]model.PortReport, 0),
		Changed:   make([]FingerprintChange, 0),
		OldDigest: Digest(oldReport),
		NewDigest: Digest(newReport),
	}

	if diff.OldDigest == diff.NewDigest {
		return diff
	}

	oldPorts := make(map[int]model.PortReport, len(oldReport.OpenPorts))
	for _, p := range oldReport.OpenPorts {
		oldPorts[p.Port] = p
	}
	newPorts := make(map[int]model.PortReport, len(newReport.OpenPorts))
	for _, p := range newReport.OpenPorts {
		newPorts[p.Port] = p
	}

	for port, newPort := range newPorts {
		oldPort, existed := oldPorts[port]
		if !existed {
			diff.Added = append(diff.Added, newPort)
			continue
		}
		if oldPort.Service != newPort.Service || oldPort.Banner != newPort.Banner {
			diff.Changed = append(diff.Changed, FingerprintChange{
				Port: port,
				Old:  oldPort,
				New:  newPort,
			})
		}
	}

	for port, oldPort := range oldPorts {
		if _, exists := newPorts[port]; !exists {
			diff.Removed = append(diff.Removed, oldPort)
		}
	}

	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i].Port < diff.Added[j].Port })
	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i].Port < diff.Removed[j].Port })
	sort.Slice(diff.Changed, func(i, j int) bool { return diff.Changed[i].Port < diff.Changed[j].Port })

	return diff
}
