//go:build !unix

package scanner

// SoftFDLimit reports no descriptor limit on platforms without rlimit
// introspection, leaving calibrated concurrency uncapped.
func SoftFDLimit() (uint64, bool) {
	return 0, false
}
