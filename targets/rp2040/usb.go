//go:build rp2040

package main

import (
	"machine"
)

// InitUSB configures machine.Serial, which is USB CDC on the RP2040
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbPort adapts machine.Serial to the command input and event output
type usbPort struct {
	failures uint32
}

func (usbPort) Buffered() int {
	return machine.Serial.Buffered()
}

func (usbPort) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

// Write sends a complete frame. A frame that cannot be written is dropped
// so a missing host never stalls the loop.
func (u *usbPort) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil || n == 0 {
			u.failures++
			return written, err
		}
		written += n
	}
	u.failures = 0
	return written, nil
}
