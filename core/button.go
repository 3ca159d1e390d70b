// Push button input
// Samples a GPIO pin on every poll and classifies clicks.
package core

// Button is a GPIO push button feeding a ClickClassifier
type Button struct {
	Source    uint8   // Source id reported with each event
	Pin       GPIOPin // Hardware pin
	ActiveLow bool    // Pin reads low while pressed (pull-up wiring)

	classifier *ClickClassifier
	sink       EventSink
	onClick    ClickFunc
	now        Micros
}

// NewButton configures pin as a pulled-up input and returns a button
// reporting to sink. A nil sink discards events.
func NewButton(source uint8, pin GPIOPin, activeLow bool, cfg ClickConfig, sink EventSink) (*Button, error) {
	classifier, err := NewClickClassifier(cfg)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = DiscardSink{}
	}

	if err := MustGPIO().ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}

	b := &Button{
		Source:     source,
		Pin:        pin,
		ActiveLow:  activeLow,
		classifier: classifier,
		sink:       sink,
	}
	b.onClick = b.report
	return b, nil
}

// Pressed reports the debounced state
func (b *Button) Pressed() bool {
	return b.classifier.State().IsPressed
}

// State returns the classifier snapshot
func (b *Button) State() ClickState {
	return b.classifier.State()
}

// Poll samples the pin and runs the classifier
func (b *Button) Poll(now Micros) {
	level := MustGPIO().ReadPin(b.Pin)
	b.now = now
	b.classifier.Tick(now, level != b.ActiveLow, b.onClick)
}

func (b *Button) report(kind ClickKind, held Micros) {
	b.sink.Click(b.Source, b.now, kind, held)
}
