package core

import "tickio/protocol"

// ByteSource is a non-blocking byte input such as a UART or USB CDC port
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// CommandInput polls a ByteSource for command frames and dispatches them
type CommandInput struct {
	src      ByteSource
	registry *CommandRegistry
	decoder  *protocol.Decoder
	scratch  [protocol.MessageMax]byte

	handled uint32
	errors  uint32
	lastErr error
}

// NewCommandInput creates a command reader
func NewCommandInput(src ByteSource, registry *CommandRegistry) *CommandInput {
	return &CommandInput{
		src:      src,
		registry: registry,
		decoder:  protocol.NewDecoder(),
	}
}

// Handled returns the number of commands run successfully
func (c *CommandInput) Handled() uint32 { return c.handled }

// Errors returns the number of rejected frames and failed commands
func (c *CommandInput) Errors() uint32 { return c.errors }

// LastError returns the most recent failure
func (c *CommandInput) LastError() error { return c.lastErr }

// Poll drains at most one frame worth of input and runs complete commands
func (c *CommandInput) Poll(now Micros) {
	n := 0
	for n < len(c.scratch) && c.src.Buffered() > 0 {
		b, err := c.src.ReadByte()
		if err != nil {
			break
		}
		c.scratch[n] = b
		n++
	}
	if n > 0 {
		c.decoder.Write(c.scratch[:n])
	}

	for {
		_, payload, ok, err := c.decoder.NextMessage()
		if err != nil {
			c.fail(err)
			continue
		}
		if !ok {
			return
		}
		if err := c.registry.Dispatch(now, &payload); err != nil {
			c.fail(err)
			continue
		}
		c.handled++
	}
}

func (c *CommandInput) fail(err error) {
	c.errors++
	c.lastErr = err
	DebugAsync("[CMD] " + err.Error())
}
