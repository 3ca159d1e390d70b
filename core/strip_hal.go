package core

import "image/color"

// StripDriver pushes a frame of colors to an addressable LED strip.
// Serial encoding of the pixels is the driver's business.
type StripDriver interface {
	WriteColors(pixels []color.RGBA) error
}

// DisplayDriver shows a labelled value on a small display
type DisplayDriver interface {
	ShowValue(label string, value int16) error
}

var (
	stripDriver   StripDriver
	displayDriver DisplayDriver
)

// SetStripDriver registers the strip output
func SetStripDriver(d StripDriver) {
	stripDriver = d
}

// MustStrip returns the configured strip driver or panics if missing.
func MustStrip() StripDriver {
	if stripDriver == nil {
		panic("strip driver not configured")
	}
	return stripDriver
}

// SetDisplayDriver registers an optional display
func SetDisplayDriver(d DisplayDriver) {
	displayDriver = d
}

// Display returns the registered display, or nil
func Display() DisplayDriver {
	return displayDriver
}
