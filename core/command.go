package core

import (
	"errors"
	"sync"

	"tickio/protocol"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(now Micros, data *[]byte) error

// Command represents a registered host command
type Command struct {
	ID      protocol.CommandID
	Name    string
	Args    []string
	Handler CommandHandler
}

// CommandRegistry maps command ids to handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[protocol.CommandID]*Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[protocol.CommandID]*Command),
	}
}

// Register binds handler to a known command. Registering the same id again
// replaces the handler.
func (r *CommandRegistry) Register(id protocol.CommandID, handler CommandHandler) error {
	info, ok := id.Info()
	if !ok {
		return ErrUnknownCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[id] = &Command{
		ID:      id,
		Name:    info.Name,
		Args:    info.Args,
		Handler: handler,
	}
	return nil
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id protocol.CommandID) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch decodes the command id at the front of data and calls its
// handler with the remaining bytes
func (r *CommandRegistry) Dispatch(now Micros, data *[]byte) error {
	id, err := protocol.DecodeVLQ(data)
	if err != nil {
		return err
	}
	cmd, ok := r.GetCommand(protocol.CommandID(id))
	if !ok || cmd.Handler == nil {
		return errors.New("unknown command ID: " + itoa(int(id)))
	}
	return cmd.Handler(now, data)
}

// decodeArgs reads one VLQ per destination
func decodeArgs(data *[]byte, dst ...*int32) error {
	for _, d := range dst {
		v, err := protocol.DecodeVLQ(data)
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}
