// Host command handlers
// Each Register* call binds the commands of one component.
package core

import (
	"image/color"

	"tickio/protocol"
)

// RegisterStripCommands binds set_animation and set_color to s
func RegisterStripCommands(r *CommandRegistry, s *Strip) {
	r.Register(protocol.CmdSetAnimation, func(now Micros, data *[]byte) error {
		var anim int32
		if err := decodeArgs(data, &anim); err != nil {
			return err
		}
		if anim < 0 || anim > int32(AnimFlicker) {
			return ErrInvalidRange
		}
		return s.SetAnimation(now, Animation(anim))
	})

	r.Register(protocol.CmdSetColor, func(now Micros, data *[]byte) error {
		var red, green, blue int32
		if err := decodeArgs(data, &red, &green, &blue); err != nil {
			return err
		}
		s.SetColor(color.RGBA{R: clampByte(red), G: clampByte(green), B: clampByte(blue), A: 255})
		return nil
	})
}

// RegisterBlinkerCommands binds the LED pattern commands to b
func RegisterBlinkerCommands(r *CommandRegistry, b *Blinker) {
	r.Register(protocol.CmdSetPattern, func(now Micros, data *[]byte) error {
		var led, count, pulseMs, waitMs int32
		if err := decodeArgs(data, &led, &count, &pulseMs, &waitMs); err != nil {
			return err
		}
		if count < 0 || pulseMs < 0 || waitMs < 0 {
			return ErrInvalidRange
		}
		return b.SetPattern(now, int(led), PatternMillis(uint32(count), uint32(pulseMs), uint32(waitMs)))
	})

	r.Register(protocol.CmdPauseLED, func(now Micros, data *[]byte) error {
		var led int32
		if err := decodeArgs(data, &led); err != nil {
			return err
		}
		return b.Pause(int(led))
	})

	r.Register(protocol.CmdResumeLED, func(now Micros, data *[]byte) error {
		var led int32
		if err := decodeArgs(data, &led); err != nil {
			return err
		}
		return b.Resume(int(led))
	})
}

// RegisterEncoderCommands binds set_position to e
func RegisterEncoderCommands(r *CommandRegistry, e *Encoder) {
	r.Register(protocol.CmdSetPosition, func(now Micros, data *[]byte) error {
		var value int32
		if err := decodeArgs(data, &value); err != nil {
			return err
		}
		e.SetValue(clampInt16(value, -32768, 32767))
		return nil
	})
}

// RegisterReportCommands binds the reporting switches and trace dump
func RegisterReportCommands(r *CommandRegistry, rep *Reporter) {
	r.Register(protocol.CmdSetReport, func(now Micros, data *[]byte) error {
		var levels, steps int32
		if err := decodeArgs(data, &levels, &steps); err != nil {
			return err
		}
		rep.ReportLevels = levels != 0
		rep.ReportSteps = steps != 0
		return nil
	})

	r.Register(protocol.CmdDumpTrace, func(now Micros, data *[]byte) error {
		DumpTrace()
		return nil
	})
}

func clampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
