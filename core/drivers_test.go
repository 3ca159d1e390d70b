package core

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"tickio/protocol"
)

type sinkRecord struct {
	kind   string
	source uint8
	at     Micros
	a, b   int32
}

type recordingSink struct {
	records []sinkRecord
}

func (r *recordingSink) Click(source uint8, now Micros, kind ClickKind, held Micros) {
	r.records = append(r.records, sinkRecord{"click", source, now, int32(kind), int32(held.Milliseconds())})
}

func (r *recordingSink) Position(source uint8, now Micros, value int16, forward bool) {
	r.records = append(r.records, sinkRecord{"position", source, now, int32(value), boolToInt32(forward)})
}

func (r *recordingSink) Level(source uint8, now Micros, slot PulseSlot, level bool) {
	r.records = append(r.records, sinkRecord{"level", source, now, int32(slot), boolToInt32(level)})
}

func (r *recordingSink) Step(source uint8, now Micros, id uint8, value int16) {
	r.records = append(r.records, sinkRecord{"step", source, now, int32(id), int32(value)})
}

func (r *recordingSink) count(kind string) int {
	n := 0
	for _, rec := range r.records {
		if rec.kind == kind {
			n++
		}
	}
	return n
}

func TestButtonReportsClicks(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)
	sink := &recordingSink{}

	b, err := NewButton(7, 2, true, testClickConfig, sink)
	if err != nil {
		t.Fatal(err)
	}
	if !gpio.inputs[2] {
		t.Fatal("button pin not configured as input")
	}

	for ms := uint32(0); ms <= 600; ms += 10 {
		// Active low: pulled to ground while pressed
		gpio.pins[2] = !(ms < 50)
		b.Poll(Millis(ms))
	}

	if len(sink.records) != 1 {
		t.Fatalf("got %d events: %+v", len(sink.records), sink.records)
	}
	rec := sink.records[0]
	if rec.kind != "click" || rec.source != 7 || rec.a != int32(SingleClick) || rec.at != Millis(550) {
		t.Errorf("unexpected event %+v", rec)
	}
}

func TestBlinkerDrivesPin(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)
	sink := &recordingSink{}

	b := NewBlinker(3, sink)
	idx, err := b.Add(0, 25, false, PatternMillis(3, 100, 500))
	if err != nil {
		t.Fatal(err)
	}

	var levels []bool
	last := gpio.pins[25]
	for ms := uint32(0); ms < 1100; ms += 10 {
		b.Poll(Millis(ms))
		if gpio.pins[25] != last {
			last = gpio.pins[25]
			levels = append(levels, last)
		}
	}
	if len(levels) != 6 {
		t.Errorf("pin changed %d times, want 6", len(levels))
	}
	if sink.count("level") != 6 {
		t.Errorf("reported %d level changes, want 6", sink.count("level"))
	}
	if b.Lit(idx) {
		t.Error("LED lit while resting")
	}
}

func TestBlinkerActiveLowAndPause(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)

	b := NewBlinker(3, nil)
	idx, err := b.Add(0, 16, true, PatternMillis(1, 100, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !gpio.pins[16] {
		t.Fatal("active low LED must start high")
	}

	b.Poll(Millis(100))
	if !b.Lit(idx) || gpio.pins[16] {
		t.Fatal("active low LED not driven low when lit")
	}

	if err := b.Pause(idx); err != nil {
		t.Fatal(err)
	}
	b.Poll(Millis(500))
	if !b.Lit(idx) {
		t.Error("paused LED changed state")
	}

	if err := b.Resume(idx); err != nil {
		t.Fatal(err)
	}
	b.Poll(Millis(510))
	if b.Lit(idx) {
		t.Error("resumed LED did not continue its pattern")
	}

	if err := b.Pause(5); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("unknown LED accepted: %v", err)
	}
}

func TestBlinkerRestartAndSetPattern(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)

	b := NewBlinker(3, nil)
	idx, _ := b.Add(0, 25, false, PatternMillis(2, 100, 100))
	b.Poll(Millis(100))
	if !b.Lit(idx) {
		t.Fatal("LED not lit after first pulse")
	}

	if err := b.Restart(Millis(150), idx); err != nil {
		t.Fatal(err)
	}
	if b.Lit(idx) || gpio.pins[25] {
		t.Error("restart did not turn the LED off")
	}

	if err := b.SetPattern(Millis(150), idx, PatternMillis(0, 100, 100)); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("invalid pattern accepted: %v", err)
	}
	if err := b.SetPattern(Millis(150), idx, PatternMillis(1, 50, 0)); err != nil {
		t.Fatal(err)
	}
	b.Poll(Millis(200))
	if !b.Lit(idx) {
		t.Error("new pattern not running")
	}
}

func TestFaderSweep(t *testing.T) {
	pwm := NewMockPWMDriver()
	SetPWMDriver(pwm)
	sink := &recordingSink{}

	cfg := FadeConfig{
		Pin:       9,
		Period:    Millis(1),
		Threshold: 255,
		Duration:  Millis(1000),
		Refresh:   Millis(20),
	}
	f, err := NewFader(4, 1, cfg, sink)
	if err != nil {
		t.Fatal(err)
	}
	if f.Step() != 5 {
		t.Fatalf("step = %d, want 5", f.Step())
	}
	if pwm.periods[9] != Millis(1) {
		t.Error("PWM period not configured")
	}

	f.Poll(Millis(20))
	f.Poll(Millis(40))
	if pwm.duty[9] != f.Duty(5) {
		t.Errorf("duty = %d, want %d", pwm.duty[9], f.Duty(5))
	}
	if f.Duty(255) != 65535 || f.Duty(0) != 0 {
		t.Errorf("duty scaling: full=%d zero=%d", f.Duty(255), f.Duty(0))
	}

	// Run well past one sweep: brightness must stay within [0, 255]
	for ms := uint32(60); ms <= 5000; ms += 20 {
		f.Poll(Millis(ms))
		if v := f.Brightness(); v < 0 || v > 255 {
			t.Fatalf("brightness %d out of range at %dms", v, ms)
		}
	}
	if sink.count("step") == 0 {
		t.Error("no step events reported")
	}
}

func TestFaderPause(t *testing.T) {
	pwm := NewMockPWMDriver()
	SetPWMDriver(pwm)

	f, err := NewFader(4, 1, FadeConfig{Pin: 9, Period: Millis(1), Threshold: 100, Duration: Millis(100), Refresh: Millis(10)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.Poll(Millis(10))
	f.SetEnabled(Millis(10), false)
	writes := len(pwm.history)
	f.Poll(Millis(500))
	if len(pwm.history) != writes {
		t.Error("paused fader wrote a duty cycle")
	}
	f.SetEnabled(Millis(500), true)
	f.Poll(Millis(505))
	if len(pwm.history) != writes {
		t.Error("resumed fader caught up on missed steps")
	}
}

func TestFadeConfigValidate(t *testing.T) {
	SetPWMDriver(NewMockPWMDriver())
	_, err := NewFader(0, 0, FadeConfig{Pin: 1, Period: Millis(1), Threshold: 0, Refresh: Millis(10)}, nil)
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("zero threshold: %v", err)
	}
	_, err = NewFader(0, 0, FadeConfig{Pin: 1, Period: Millis(1), Threshold: 255}, nil)
	if !errors.Is(err, ErrZeroInterval) {
		t.Errorf("zero refresh: %v", err)
	}
}

func testStripConfig(anim Animation) StripConfig {
	return StripConfig{
		Pixels:    5,
		Color:     color.RGBA{R: 255, G: 64, B: 0, A: 255},
		Animation: anim,
		Refresh:   Millis(10),
		Duration:  Millis(200),
		Spacing:   2,
		Flicker:   PatternMillis(2, 50, 100),
	}
}

func brightest(pixels []color.RGBA) int {
	best, idx := -1, -1
	for i, p := range pixels {
		if int(p.R) > best {
			best, idx = int(p.R), i
		}
	}
	return idx
}

func TestStripScanner(t *testing.T) {
	strip := &MockStripDriver{}
	SetStripDriver(strip)

	s, err := NewStrip(5, testStripConfig(AnimScanner), nil)
	if err != nil {
		t.Fatal(err)
	}

	var walk []int
	for ms := uint32(10); ms <= 100; ms += 10 {
		s.Poll(Millis(ms))
		walk = append(walk, brightest(strip.last))
	}
	want := []int{0, 1, 2, 3, 4, 4, 3, 2, 1, 0}
	for i := range want {
		if walk[i] != want[i] {
			t.Fatalf("scanner walk = %v, want %v", walk, want)
		}
	}
	if strip.frames != 10 {
		t.Errorf("wrote %d frames, want 10", strip.frames)
	}
}

func TestStripChase(t *testing.T) {
	strip := &MockStripDriver{}
	SetStripDriver(strip)

	s, err := NewStrip(5, testStripConfig(AnimChase), nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Poll(Millis(10))
	lit := 0
	for _, p := range strip.last {
		if p.R != 0 {
			lit++
		}
	}
	if lit != 3 {
		t.Errorf("%d pixels lit with spacing 2 over 5 pixels, want 3", lit)
	}
}

func TestStripBreatheAndFlicker(t *testing.T) {
	strip := &MockStripDriver{}
	SetStripDriver(strip)
	sink := &recordingSink{}

	s, err := NewStrip(5, testStripConfig(AnimBreathe), sink)
	if err != nil {
		t.Fatal(err)
	}
	for ms := uint32(10); ms <= 400; ms += 10 {
		s.Poll(Millis(ms))
		for _, p := range strip.last {
			if p != strip.last[0] {
				t.Fatal("breathe frame not uniform")
			}
		}
	}
	if sink.count("step") != 40 {
		t.Errorf("got %d steps, want 40", sink.count("step"))
	}

	if err := s.SetAnimation(Millis(400), AnimFlicker); err != nil {
		t.Fatal(err)
	}
	s.Poll(Millis(450))
	if strip.last[0] != testStripConfig(AnimFlicker).Color {
		t.Errorf("flicker on frame = %v", strip.last[0])
	}
	if sink.count("level") != 1 {
		t.Errorf("got %d level events, want 1", sink.count("level"))
	}

	if err := s.SetAnimation(Millis(500), AnimOff); err != nil {
		t.Fatal(err)
	}
	s.Poll(Millis(510))
	if strip.last[0] != (color.RGBA{}) {
		t.Error("strip not dark after switching off")
	}
}

func TestStripConfigValidate(t *testing.T) {
	cfg := testStripConfig(AnimScanner)
	cfg.Pixels = MaxPixels + 1
	if _, err := NewStrip(0, cfg, nil); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("oversized strip: %v", err)
	}

	cfg = testStripConfig(AnimFlicker)
	cfg.Flicker.Count = 0
	if _, err := NewStrip(0, cfg, nil); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("bad flicker pattern: %v", err)
	}

	if a, ok := ParseAnimation("breathe"); !ok || a != AnimBreathe {
		t.Error("ParseAnimation(breathe) failed")
	}
	if _, ok := ParseAnimation("sparkle"); ok {
		t.Error("unknown animation accepted")
	}
}

func TestEncoderReportsAndDisplays(t *testing.T) {
	gpio := NewMockGPIODriver()
	SetGPIODriver(gpio)
	display := &MockDisplay{}
	SetDisplayDriver(display)
	defer SetDisplayDriver(nil)
	sink := &recordingSink{}

	e, err := NewEncoder(2, "vol", 3, 4, DefaultQuadratureConfig(), sink)
	if err != nil {
		t.Fatal(err)
	}

	gpio.pins[3], gpio.pins[4] = false, false
	e.Poll(0)
	gpio.pins[3] = true
	e.Poll(Millis(5))

	if e.Value() != 1 {
		t.Fatalf("value = %d, want 1", e.Value())
	}
	if len(sink.records) != 1 || sink.records[0].kind != "position" || sink.records[0].a != 1 {
		t.Errorf("unexpected events %+v", sink.records)
	}
	if display.label != "vol" || display.value != 1 {
		t.Errorf("display shows %s=%d", display.label, display.value)
	}
}

func TestReporterFrames(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Click(1, Millis(550), SingleClick, 0)
	r.Position(2, Millis(600), -3, false)
	r.Level(3, Millis(700), 0, true)
	r.ReportLevels = true
	r.Level(3, Millis(800), 1, true)

	if r.Sent() != 3 || r.Errors() != 0 {
		t.Fatalf("sent=%d errors=%d", r.Sent(), r.Errors())
	}

	d := protocol.NewDecoder()
	d.Write(buf.Bytes())
	var got []protocol.Event
	for {
		ev, ok, err := d.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, ev)
	}

	want := []protocol.Event{
		{Kind: protocol.EventClick, Source: 1, Time: 550000, A: int32(SingleClick)},
		{Kind: protocol.EventPosition, Source: 2, Time: 600000, A: -3, B: 0},
		{Kind: protocol.EventLevel, Source: 3, Time: 800000, A: 1, B: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if d.Stats().SeqGaps != 0 {
		t.Error("reporter skipped sequence numbers")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("link down") }

func TestReporterCountsWriteErrors(t *testing.T) {
	r := NewReporter(failingWriter{})
	r.Click(1, 0, LongPress, 0)
	if r.Errors() != 1 || r.Sent() != 0 {
		t.Errorf("sent=%d errors=%d", r.Sent(), r.Errors())
	}
}

func TestTraceRing(t *testing.T) {
	ClearTrace()
	defer ClearTrace()

	for i := 0; i < TraceRingSize+4; i++ {
		RecordEvent(uint8(protocol.EventStep), 1, Micros(i), int32(i), 0)
	}
	snap := TraceSnapshot(nil)
	if len(snap) != TraceRingSize {
		t.Fatalf("snapshot has %d events, want %d", len(snap), TraceRingSize)
	}
	if snap[0].A != 4 || snap[len(snap)-1].A != TraceRingSize+3 {
		t.Errorf("snapshot not oldest first: first=%d last=%d", snap[0].A, snap[len(snap)-1].A)
	}

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	DumpTrace()
	if len(lines) != TraceRingSize+2 {
		t.Errorf("dump wrote %d lines", len(lines))
	}
}
