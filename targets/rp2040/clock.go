//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"tickio/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareClock reads the free-running 1MHz timer so loop timestamps do
// not depend on the scheduler's sleep accounting
var hardwareClock core.Clock = core.ClockFunc(func() core.Micros {
	return core.Micros(GetHardwareUptime())
})

// GetHardwareUptime reads the full 64-bit microsecond timer
func GetHardwareUptime() uint64 {
	// Read high, low, high to detect a carry between the two reads
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime rebases core time on the hardware timer
func UpdateSystemTime() {
	core.SetTime(core.Micros(GetHardwareUptime()))
}
