package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// AppendVLQ appends the variable-length encoding of v to dst. Values in
// [-32, 96) take one byte; each further byte adds seven bits.
func AppendVLQ(dst []byte, v int32) []byte {
	if v < -(1<<26) || v >= 3<<26 {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if v < -(1<<19) || v >= 3<<19 {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if v < -(1<<12) || v >= 3<<12 {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if v < -(1<<5) || v >= 3<<5 {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// DecodeVLQ reads one value from the front of *data and advances it
func DecodeVLQ(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(buf[0])
	buf = buf[1:]
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}

	for n := 1; c&0x80 != 0; n++ {
		if n > 4 {
			return 0, ErrInvalidVLQ
		}
		if len(buf) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32(buf[0])
		buf = buf[1:]
		v = v<<7 | c&0x7F
	}

	*data = buf
	return int32(v), nil
}
