package util

import "runtime"

const (
	minPoolSize = 4
	maxPoolSize = 32
)

// PoolSize returns override when it is positive. Otherwise it returns
// twice the CPU count clamped to [4, 32]. Parser pools and batch workers
// both size from it so a page worker never waits on a parser.
func PoolSize(override int) int {
	if override > 0 {
		return override
	}
	return min(max(runtime.NumCPU()*2, minPoolSize), maxPoolSize)
}

// FetchWorkers sizes a batch pool for n targets: never more workers than
// targets, never fewer than one.
func FetchWorkers(override, n int) int {
	return max(min(PoolSize(override), n), 1)
}
