package scanner

import (
	"context"
	"fmt"
	"net"
)

// ResolveTarget resolves a user-supplied target to the address the scan
// will dial. IP literals pass through untouched; hostnames are resolved
// locally, preferring the first IPv4 address and falling back to the first
// address of any family. Resolution is always local so that a SOCKS5 proxy
// configuration changes where connections go, not where names resolve.
func ResolveTarget(ctx context.Context, target string) (string, error) {
	if ip := net.ParseIP(target); ip != nil {
		return target, nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target %q: %w", target, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("target %q resolved to no addresses", target)
	}

	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}
