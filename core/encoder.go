// Rotary encoder input
// Samples the clk and dt pins on every poll and reports coalesced positions.
package core

// Encoder is a two-pin quadrature dial
type Encoder struct {
	Source uint8 // Source id reported with each position
	Label  string
	Clk    GPIOPin
	Dt     GPIOPin

	decoder  *Quadrature
	sink     EventSink
	onChange PositionFunc
	now      Micros
	err      error
}

// NewEncoder configures both pins as pulled-up inputs. A nil sink
// discards events.
func NewEncoder(source uint8, label string, clk, dt GPIOPin, cfg QuadratureConfig, sink EventSink) (*Encoder, error) {
	decoder, err := NewQuadrature(cfg)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = DiscardSink{}
	}

	gpio := MustGPIO()
	if err := gpio.ConfigureInputPullUp(clk); err != nil {
		return nil, err
	}
	if err := gpio.ConfigureInputPullUp(dt); err != nil {
		return nil, err
	}

	e := &Encoder{
		Source:  source,
		Label:   label,
		Clk:     clk,
		Dt:      dt,
		decoder: decoder,
		sink:    sink,
	}
	e.onChange = e.report
	return e, nil
}

// Value returns the current position
func (e *Encoder) Value() int16 { return e.decoder.Value() }

// SetValue moves the position without reporting it
func (e *Encoder) SetValue(v int16) { e.decoder.SetValue(v) }

// Err returns the last display error seen during Poll
func (e *Encoder) Err() error { return e.err }

// Poll samples both pins and runs the decoder
func (e *Encoder) Poll(now Micros) {
	gpio := MustGPIO()
	clk := gpio.ReadPin(e.Clk)
	dt := gpio.ReadPin(e.Dt)
	e.now = now
	e.decoder.Tick(now, clk, dt, e.onChange)
}

func (e *Encoder) report(value int16, forward bool) {
	e.sink.Position(e.Source, e.now, value, forward)
	if d := Display(); d != nil {
		if err := d.ShowValue(e.Label, value); err != nil {
			e.err = err
		}
	}
}
