//go:build !tinygo

package core

// interruptState is a placeholder on regular Go
type interruptState uintptr

func disableInterrupts() interruptState {
	return 0
}

func restoreInterrupts(interruptState) {}
