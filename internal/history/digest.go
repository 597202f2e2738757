package history

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/portdog/internal/model"
)

// Digest computes a fingerprint digest over a report's open ports.
// Two reports with the same set of open ports, services, and banners
// produce the same digest regardless of discovery order, so comparing
// digests answers "did anything change?" without walking both reports.
//
// Design decision: SHA3-256 over a canonical line per port. The canonical
// form is "port/service/quoted-banner" sorted by port number. Quoting the
// banner with %q keeps embedded newlines from merging two lines into one,
// which would let different reports collide.
func Digest(report *model.ScanReport) string {
	ports := make([]model.PortReport, len(report.OpenPorts))
	copy(ports, report.OpenPorts)
	sort.Slice(ports, func(i, j int) bool { return ports[i].Port < ports[j].Port })

	h := sha3.New256()
	for _, p := range ports {
		fmt.Fprintf(h, "%d/%s/%q\n", p.Port, p.Service, p.Banner) //nolint:errcheck // hash writes never fail
	}

	return hex.EncodeToString(h.Sum(nil))
}
