//go:build rp2040

package main

import (
	"image/color"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// WS2812 bit timing: 10 state machine cycles per bit at 800kHz.
// A zero is 4 cycles high then 6 low, a one is 7 high then 3 low.
const (
	ws2812BitRate      = 800000
	ws2812CyclesPerBit = 10
	ws2812Origin       = 0 // Load at offset 0 for correct jump addresses
)

// buildWS2812Program shifts 24 bits per pixel, MSB first. Autopull stalls
// the machine on the out instruction with the pin low, which latches the
// strip once the FIFO runs dry.
func buildWS2812Program() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestY, 1).Encode(),             // 0: out y, 1
		asm.Set(rp2pio.SetDestPins, 1).Delay(2).Encode(), // 1: set pins, 1 [2]
		asm.Jmp(5, rp2pio.JmpYNZeroDec).Encode(),         // 2: jmp y--, 5
		// zero:
		asm.Set(rp2pio.SetDestPins, 0).Delay(3).Encode(), // 3: set pins, 0 [3]
		asm.Jmp(0, rp2pio.JmpAlways).Encode(),            // 4: jmp 0
		// one:
		asm.Set(rp2pio.SetDestPins, 1).Delay(2).Encode(), // 5: set pins, 1 [2]
		asm.Set(rp2pio.SetDestPins, 0).Delay(1).Encode(), // 6: set pins, 0 [1]
		// .wrap
	}
}

// pioStrip feeds WS2812 pixels through a PIO state machine so the CPU
// never bit-bangs the timing
type pioStrip struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
}

func newPIOStrip(pioNum, smNum uint8, pin machine.Pin) (*pioStrip, error) {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	s := &pioStrip{pio: pioHW, sm: pioHW.StateMachine(smNum), pin: pin}

	// Claim the state machine before loading the program
	s.sm.TryClaim()

	program := buildWS2812Program()
	offset, err := s.pio.AddProgram(program, ws2812Origin)
	if err != nil {
		return nil, err
	}
	s.offset = offset

	whole, frac, err := rp2pio.ClkDivFromFrequency(ws2812BitRate*ws2812CyclesPerBit, machine.CPUFrequency())
	if err != nil {
		return nil, err
	}

	pin.Configure(machine.PinConfig{Mode: s.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	// Shift left, autopull every 24 bits
	cfg.SetOutShift(false, true, 24)
	// Only the TX FIFO is used
	cfg.SetFIFOJoin(rp2pio.FifoJoinTx)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(whole, frac)

	s.sm.Init(offset, cfg)

	// Pin direction must be set after Init
	s.sm.SetPindirsConsecutive(pin, 1, true)
	s.sm.SetPinsConsecutive(pin, 1, false)
	s.sm.SetEnabled(true)
	return s, nil
}

// WriteColors queues every pixel in GRB order
func (s *pioStrip) WriteColors(pixels []color.RGBA) error {
	for _, c := range pixels {
		word := uint32(c.G)<<24 | uint32(c.R)<<16 | uint32(c.B)<<8
		for s.sm.IsTxFIFOFull() {
		}
		s.sm.TxPut(word)
	}
	return nil
}
