//go:build !tinygo

package core

import "sync/atomic"

// On regular Go the counter is only moved by SetTime/AdvanceTime, which
// lets tests and the host simulator drive time deterministically.
var systemMicros atomic.Uint64

func getSystemMicros() uint64 {
	return systemMicros.Load()
}

func setSystemMicros(us uint64) {
	systemMicros.Store(us)
}
