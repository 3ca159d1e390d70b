package protocol

// CommandID identifies a host to device command. The id is the first VLQ
// of the frame payload; the arguments follow as VLQs.
type CommandID uint8

const (
	CmdSetAnimation CommandID = 1 // anim
	CmdSetColor     CommandID = 2 // r g b
	CmdSetPattern   CommandID = 3 // led count pulse_ms wait_ms
	CmdPauseLED     CommandID = 4 // led
	CmdResumeLED    CommandID = 5 // led
	CmdSetPosition  CommandID = 6 // value
	CmdSetReport    CommandID = 7 // levels steps
	CmdDumpTrace    CommandID = 8
)

// CommandInfo names a command and its arguments
type CommandInfo struct {
	ID   CommandID
	Name string
	Args []string
}

// Commands lists every command the device understands
var Commands = []CommandInfo{
	{CmdSetAnimation, "set_animation", []string{"anim"}},
	{CmdSetColor, "set_color", []string{"r", "g", "b"}},
	{CmdSetPattern, "set_pattern", []string{"led", "count", "pulse_ms", "wait_ms"}},
	{CmdPauseLED, "pause_led", []string{"led"}},
	{CmdResumeLED, "resume_led", []string{"led"}},
	{CmdSetPosition, "set_position", []string{"value"}},
	{CmdSetReport, "set_report", []string{"levels", "steps"}},
	{CmdDumpTrace, "dump_trace", nil},
}

// LookupCommand finds a command by name
func LookupCommand(name string) (CommandInfo, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandInfo{}, false
}

// Info returns the description of id
func (id CommandID) Info() (CommandInfo, bool) {
	for _, c := range Commands {
		if c.ID == id {
			return c, true
		}
	}
	return CommandInfo{}, false
}

func (id CommandID) String() string {
	if c, ok := id.Info(); ok {
		return c.Name
	}
	return "unknown"
}

// AppendCommand appends a command frame to dst
func AppendCommand(dst []byte, seq uint8, id CommandID, args ...int32) ([]byte, error) {
	var tmp [MessageMax]byte
	payload := AppendVLQ(tmp[:0], int32(id))
	for _, a := range args {
		payload = AppendVLQ(payload, a)
		if len(payload) > MessageMax {
			return dst, ErrFrameTooLong
		}
	}
	return AppendMessage(dst, seq, payload)
}
