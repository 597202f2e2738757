//go:build unix

package scanner

import "golang.org/x/sys/unix"

// SoftFDLimit reports the soft RLIMIT_NOFILE of the current process. It is
// the default FDLimitFunc on Unix-like platforms, where every in-flight
// probe holds one descriptor.
func SoftFDLimit() (uint64, bool) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, false
	}
	return uint64(lim.Cur), true
}
