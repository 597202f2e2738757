package config

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Port range boundaries for TCP.
const (
	minPort = 1
	maxPort = 65535
)

// ParsePortSpec parses a port specification string into a sorted,
// deduplicated list of ports. The specification is a comma-separated list
// of elements, each of which is one of:
//
//   - a single port: "8080"
//   - an inclusive range: "1-1024"
//   - "-" on its own, meaning every port from 1 to 65535
//
// Whitespace around elements is ignored and empty elements are skipped, so
// "80, 443," is valid. Overlapping elements are merged: the result is the
// exact union in ascending order with no duplicates.
//
// Error messages are capitalized and quoted because they are printed
// verbatim as the scan abort reason.
func ParsePortSpec(spec string) ([]int, error) {
	ports := make([]int, 0)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// A lone dash is the "all ports" shorthand. It must be checked
		// before range splitting because "-" would otherwise parse as a
		// range with two empty endpoints.
		if part == "-" {
			for port := minPort; port <= maxPort; port++ {
				ports = append(ports, port)
			}
			continue
		}

		if startStr, endStr, isRange := strings.Cut(part, "-"); isRange {
			start, err := strconv.ParseUint(startStr, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("Invalid start of range: '%s'", startStr)
			}
			end, err := strconv.ParseUint(endStr, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("Invalid end of range: '%s'", endStr)
			}
			if start == 0 || end == 0 || start > end {
				return nil, fmt.Errorf("Invalid port range: '%s'.", part)
			}
			for port := int(start); port <= int(end); port++ {
				ports = append(ports, port)
			}
			continue
		}

		port, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("Invalid port: '%s'", part)
		}
		if port == 0 {
			return nil, fmt.Errorf("Invalid port '%s'. Port must be > 0.", part)
		}
		ports = append(ports, int(port))
	}

	sort.Ints(ports)
	return slices.Compact(ports), nil
}
