// Debounced click classifier
// Turns raw pressed/released samples from one input into single-click,
// double-click and long-press events.
package core

// ClickKind identifies a classified button gesture
type ClickKind uint8

const (
	SingleClick ClickKind = iota + 1
	DoubleClick
	LongPress
)

func (k ClickKind) String() string {
	switch k {
	case SingleClick:
		return "single_click"
	case DoubleClick:
		return "double_click"
	case LongPress:
		return "long_press"
	default:
		return "unknown"
	}
}

// ClickConfig holds the classifier thresholds
type ClickConfig struct {
	Debounce    Micros // Minimum time between recognized edges
	DoubleClick Micros // Window after a release for a second click
	LongPress   Micros // Hold time before the first long-press event
	Repeat      Micros // Long-press repeat interval, 0 = no repeat
}

// Validate checks the thresholds
func (c ClickConfig) Validate() error {
	if err := checkInterval("click", "debounce", c.Debounce, true); err != nil {
		return err
	}
	if err := checkInterval("click", "double_click", c.DoubleClick, false); err != nil {
		return err
	}
	if err := checkInterval("click", "long_press", c.LongPress, false); err != nil {
		return err
	}
	return checkInterval("click", "repeat", c.Repeat, true)
}

// ClickFunc receives a classified event. For LongPress, held is the time
// past the long-press threshold (zero for the first event). It runs on the
// polling loop and must return quickly.
type ClickFunc func(kind ClickKind, held Micros)

// ClickState is a snapshot of the classifier
type ClickState struct {
	IsPressed             bool
	LastPressTime         Micros
	LastEventTime         Micros
	WaitingForDoubleClick bool
	LongPressDetected     bool
}

// ClickClassifier is the per-button state machine
type ClickClassifier struct {
	cfg ClickConfig

	pressed     bool
	lastPress   Micros
	lastEdge    Micros
	lastEvent   Micros
	lastRepeat  Micros
	seenEdge    bool
	waiting     bool
	longPressed bool
}

// NewClickClassifier validates cfg and returns an idle classifier
func NewClickClassifier(cfg ClickConfig) (*ClickClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ClickClassifier{cfg: cfg}, nil
}

// Config returns the classifier thresholds
func (c *ClickClassifier) Config() ClickConfig { return c.cfg }

// State returns a snapshot of the classifier
func (c *ClickClassifier) State() ClickState {
	return ClickState{
		IsPressed:             c.pressed,
		LastPressTime:         c.lastPress,
		LastEventTime:         c.lastEvent,
		WaitingForDoubleClick: c.waiting,
		LongPressDetected:     c.longPressed,
	}
}

// Reset returns the classifier to idle
func (c *ClickClassifier) Reset() {
	*c = ClickClassifier{cfg: c.cfg}
}

// Tick feeds one raw sample. onEvent may be nil.
func (c *ClickClassifier) Tick(now Micros, pressed bool, onEvent ClickFunc) {
	if pressed != c.pressed {
		// Debounce applies to edges only
		if c.seenEdge && Since(now, c.lastEdge) < c.cfg.Debounce {
			return
		}
		c.seenEdge = true
		c.lastEdge = now
		if pressed {
			c.press(now)
		} else {
			c.release(now, onEvent)
		}
		return
	}

	if c.waiting {
		if Since(now, c.lastEvent) >= c.cfg.DoubleClick {
			c.waiting = false
			emit(onEvent, SingleClick, 0)
		}
		return
	}

	if c.pressed {
		c.checkLongPress(now, onEvent)
	}
}

func (c *ClickClassifier) press(now Micros) {
	// A press while waiting is the second half of a double click; the
	// waiting flag stays set so the release reports it.
	c.pressed = true
	c.lastPress = now
	c.longPressed = false
}

func (c *ClickClassifier) release(now Micros, onEvent ClickFunc) {
	c.pressed = false
	if c.waiting {
		c.waiting = false
		emit(onEvent, DoubleClick, 0)
		return
	}
	if !c.longPressed {
		c.waiting = true
		c.lastEvent = now
	}
}

func (c *ClickClassifier) checkLongPress(now Micros, onEvent ClickFunc) {
	held := Since(now, c.lastPress)
	if held < c.cfg.LongPress {
		return
	}

	if !c.longPressed {
		c.longPressed = true
		c.lastRepeat = now
		emit(onEvent, LongPress, 0)
		return
	}

	if c.cfg.Repeat > 0 && Since(now, c.lastRepeat) >= c.cfg.Repeat {
		c.lastRepeat = now
		emit(onEvent, LongPress, held-c.cfg.LongPress)
	}
}

func emit(onEvent ClickFunc, kind ClickKind, held Micros) {
	if onEvent != nil {
		onEvent(kind, held)
	}
}
