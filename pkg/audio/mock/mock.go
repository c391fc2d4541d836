// Package mock provides in-memory mock implementations of the
// [audio.Platform] and [audio.Connection] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and expose exported
// fields the test can set to control return values.
package mock

import (
	"context"
	"sync"

	"github.com/brandonviaje/echo/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Connection = (*Connection)(nil)
	_ audio.Platform   = (*Platform)(nil)
)

// Connection is a mock implementation of [audio.Connection].
// Set the exported fields before use; inspect the Call* fields after.
type Connection struct {
	mu sync.Mutex

	// ChannelIDResult is returned by [Connection.ChannelID].
	ChannelIDResult string

	// PlayingResult is returned by [Connection.Playing].
	PlayingResult bool

	// DisconnectError is returned by [Connection.Disconnect].
	DisconnectError error

	// PlayedClips records every clip passed to Play.
	PlayedClips [][]byte

	// FrameCb is the last callback registered via OnFrame.
	FrameCb func(speakerID string, frame audio.Frame)

	// ChangeCb is the last callback registered via OnParticipantChange.
	ChangeCb func(audio.Event)

	// ClosedCb is the last callback registered via OnClosed.
	ClosedCb func()

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int
}

// OnFrame implements [audio.Connection].
func (c *Connection) OnFrame(cb func(speakerID string, frame audio.Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FrameCb = cb
}

// OnParticipantChange implements [audio.Connection].
func (c *Connection) OnParticipantChange(cb func(audio.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ChangeCb = cb
}

// OnClosed implements [audio.Connection].
func (c *Connection) OnClosed(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ClosedCb = cb
}

// Play implements [audio.Connection] and records the clip.
func (c *Connection) Play(pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PlayedClips = append(c.PlayedClips, pcm)
}

// Playing implements [audio.Connection]. Returns PlayingResult.
func (c *Connection) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PlayingResult
}

// ChannelID implements [audio.Connection]. Returns ChannelIDResult.
func (c *Connection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ChannelIDResult
}

// Disconnect implements [audio.Connection]. Returns DisconnectError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	return c.DisconnectError
}

// EmitFrame delivers a frame through the registered OnFrame callback, if any.
func (c *Connection) EmitFrame(speakerID string, frame audio.Frame) {
	c.mu.Lock()
	cb := c.FrameCb
	c.mu.Unlock()
	if cb != nil {
		cb(speakerID, frame)
	}
}

// EmitEvent delivers a participant event through the registered callback.
func (c *Connection) EmitEvent(ev audio.Event) {
	c.mu.Lock()
	cb := c.ChangeCb
	c.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

// EmitClosed simulates a dropped transport by invoking the OnClosed callback
// synchronously.
func (c *Connection) EmitClosed() {
	c.mu.Lock()
	cb := c.ClosedCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is returned by [Platform.Connect] when ConnectFunc is
	// nil. A nil ConnectResult yields a fresh *Connection per call.
	ConnectResult *Connection

	// ConnectError is returned by [Platform.Connect].
	ConnectError error

	// ConnectFunc, when set, overrides the canned results entirely.
	ConnectFunc func(ctx context.Context, channelID string) (audio.Connection, error)

	// ConnectedChannels records the channel IDs passed to Connect, in order.
	ConnectedChannels []string
}

// Connect implements [audio.Platform].
func (p *Platform) Connect(ctx context.Context, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	p.ConnectedChannels = append(p.ConnectedChannels, channelID)
	fn := p.ConnectFunc
	result := p.ConnectResult
	err := p.ConnectError
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, channelID)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &Connection{ChannelIDResult: channelID}
	}
	return result, nil
}

// CallCountConnect returns how many times Connect was called.
func (p *Platform) CallCountConnect() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ConnectedChannels)
}
