package protocol

// Decoder splits a byte stream into frames. Corrupt data is skipped up
// to the next sync byte so the stream recovers on its own.
type Decoder struct {
	buf []byte
	off int // Start of unread data in buf

	frames  uint64
	dropped uint64
	lastSeq uint8
	haveSeq bool
	gaps    uint64
}

// DecoderStats counts decoder activity
type DecoderStats struct {
	Frames  uint64 // Valid frames decoded
	Dropped uint64 // Frames or stray bytes discarded
	SeqGaps uint64 // Sequence discontinuities between valid frames
}

// NewDecoder creates an empty decoder
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 4*MessageMax)}
}

// Write appends raw bytes from the link. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.compact()
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Buffered returns the number of unread bytes
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Stats returns decoder counters
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{Frames: d.frames, Dropped: d.dropped, SeqGaps: d.gaps}
}

// NextMessage returns the payload of the next valid frame. ok is false
// when more data is needed. A non-nil error reports a discarded frame;
// decoding may continue. The payload is only valid until the next Write.
func (d *Decoder) NextMessage() (seq uint8, payload []byte, ok bool, err error) {
	data := d.buf[d.off:]
	if len(data) == 0 {
		return 0, nil, false, nil
	}

	n := int(data[0])
	if n < MessageMin || n > MessageMax {
		d.resync()
		return 0, nil, false, ErrBadFrame
	}
	if len(data) < n {
		return 0, nil, false, nil
	}

	seq, payload, err = ParseMessage(data[:n])
	if err != nil {
		d.resync()
		return 0, nil, false, err
	}
	d.off += n
	d.trackSeq(seq)
	d.frames++
	return seq, payload, true, nil
}

// Next returns the next complete event. ok is false when more data is
// needed. A non-nil error reports a discarded frame; decoding may continue.
func (d *Decoder) Next() (ev Event, ok bool, err error) {
	_, payload, ok, err := d.NextMessage()
	if !ok || err != nil {
		return Event{}, false, err
	}
	ev, err = ParseEvent(payload)
	if err != nil {
		d.dropped++
		return Event{}, false, err
	}
	return ev, true, nil
}

// resync drops bytes through the next sync marker
func (d *Decoder) resync() {
	d.dropped++
	for i, b := range d.buf[d.off:] {
		if b == MessageSync {
			d.off += i + 1
			return
		}
	}
	d.off = len(d.buf)
}

// compact moves unread bytes to the front of the buffer
func (d *Decoder) compact() {
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}

func (d *Decoder) trackSeq(seq uint8) {
	if d.haveSeq && seq != (d.lastSeq+1)&MessageSeqMask {
		d.gaps++
	}
	d.lastSeq = seq
	d.haveSeq = true
}
