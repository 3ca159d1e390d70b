package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestVLQRoundTrip(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 95, 96, -32, -33,
		127, -127, 128, -128,
		1000, -1000, 65535, -65535,
		1000000, -1000000,
		math.MaxInt32, math.MinInt32,
	}

	for _, expected := range testCases {
		encoded := AppendVLQ(nil, expected)

		data := encoded
		decoded, err := DecodeVLQ(&data)
		if err != nil {
			t.Errorf("decode %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("value %d: %d bytes left over", expected, len(data))
		}
	}
}

func TestVLQSingleByteRange(t *testing.T) {
	for _, v := range []int32{-32, 0, 95} {
		if n := len(AppendVLQ(nil, v)); n != 1 {
			t.Errorf("value %d encoded in %d bytes, want 1", v, n)
		}
	}
	for _, v := range []int32{-33, 96} {
		if n := len(AppendVLQ(nil, v)); n != 2 {
			t.Errorf("value %d encoded in %d bytes, want 2", v, n)
		}
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80}
	_, err := DecodeVLQ(&data)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("expected ErrBufferTooSmall, got %v", err)
	}
	if len(data) != 1 {
		t.Errorf("failed decode consumed input")
	}
}

func TestVLQTooManyContinuationBytes(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQ(&data); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("expected ErrInvalidVLQ, got %v", err)
	}
}
