//go:build tinygo

package core

import (
	"sync/atomic"
	"time"
)

var (
	bootTime = time.Now()

	// offset applied by SetTime so callers can rebase the counter
	timeOffset int64
)

// getSystemMicros returns microseconds elapsed since boot
func getSystemMicros() uint64 {
	elapsed := int64(time.Since(bootTime)/time.Microsecond) + atomic.LoadInt64(&timeOffset)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed)
}

// setSystemMicros rebases the counter so that it currently reads us
func setSystemMicros(us uint64) {
	raw := int64(time.Since(bootTime) / time.Microsecond)
	atomic.StoreInt64(&timeOffset, int64(us)-raw)
}
