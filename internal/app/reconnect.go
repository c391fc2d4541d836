package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brandonviaje/echo/pkg/audio"
)

// Default reconnection parameters.
const (
	defaultMaxRetries = 10
	defaultBackoff    = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Reconnector keeps the voice connection to one channel alive. It performs
// the initial connect, watches the connection's OnClosed signal, and on an
// unexpected drop redials with exponential backoff. Every established
// connection (initial or redial) is handed to the configured OnConnected
// callback so the pipeline can be rewired.
//
// All methods are safe for concurrent use.
type Reconnector struct {
	platform   audio.Platform
	channelID  string
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	// onConnected is invoked synchronously with each new connection, before
	// OnClosed is armed on it.
	onConnected func(audio.Connection)

	mu       sync.Mutex
	conn     audio.Connection
	done     chan struct{}
	stopOnce sync.Once
	dropped  chan struct{} // signalled by OnClosed when the transport dies
}

// ReconnectorConfig configures a [Reconnector]. Zero durations and counts
// take the package defaults.
type ReconnectorConfig struct {
	Platform    audio.Platform
	ChannelID   string
	MaxRetries  int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	OnConnected func(audio.Connection)
}

// NewReconnector creates a [Reconnector]. Call [Reconnector.Start] to
// establish the initial connection.
func NewReconnector(cfg ReconnectorConfig) *Reconnector {
	r := &Reconnector{
		platform:    cfg.Platform,
		channelID:   cfg.ChannelID,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.Backoff,
		maxBackoff:  cfg.MaxBackoff,
		onConnected: cfg.OnConnected,
		done:        make(chan struct{}),
		dropped:     make(chan struct{}, 1),
	}
	if r.maxRetries <= 0 {
		r.maxRetries = defaultMaxRetries
	}
	if r.backoff <= 0 {
		r.backoff = defaultBackoff
	}
	if r.maxBackoff <= 0 {
		r.maxBackoff = defaultMaxBackoff
	}
	return r
}

// Start connects to the channel and begins monitoring for drops. ctx governs
// both the initial dial and the lifetime of the monitor goroutine.
func (r *Reconnector) Start(ctx context.Context) error {
	conn, err := r.platform.Connect(ctx, r.channelID)
	if err != nil {
		return fmt.Errorf("app: connect to voice channel %s: %w", r.channelID, err)
	}
	r.adopt(conn)

	go r.monitorLoop(ctx)
	return nil
}

// ChannelID returns the channel this reconnector is bound to.
func (r *Reconnector) ChannelID() string {
	return r.channelID
}

// Connection returns the current connection. May be nil mid-redial.
func (r *Reconnector) Connection() audio.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn
}

// Stop halts monitoring and disconnects. Safe to call more than once.
func (r *Reconnector) Stop() error {
	r.stopOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		return conn.Disconnect()
	}
	return nil
}

// adopt installs conn as the current connection: the rewire callback runs
// first, then the drop watcher is armed.
func (r *Reconnector) adopt(conn audio.Connection) {
	if r.onConnected != nil {
		r.onConnected(conn)
	}
	conn.OnClosed(r.notifyDropped)

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
}

// notifyDropped signals the monitor that the transport died. Coalesces
// repeated signals within one redial cycle.
func (r *Reconnector) notifyDropped() {
	select {
	case r.dropped <- struct{}{}:
	default:
	}
}

func (r *Reconnector) monitorLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-r.dropped:
			r.redial(ctx)
		}
	}
}

// redial attempts to re-establish the connection with exponential backoff.
func (r *Reconnector) redial(ctx context.Context) {
	backoff := r.backoff

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		default:
		}

		slog.Info("app: reconnecting to voice channel",
			"channel_id", r.channelID,
			"attempt", attempt,
			"max_retries", r.maxRetries,
		)

		conn, err := r.platform.Connect(ctx, r.channelID)
		if err == nil {
			r.mu.Lock()
			old := r.conn
			r.conn = nil
			r.mu.Unlock()
			if old != nil {
				_ = old.Disconnect()
			}

			r.adopt(conn)
			slog.Info("app: voice channel reconnected",
				"channel_id", r.channelID, "attempt", attempt)
			return
		}

		slog.Warn("app: reconnect attempt failed",
			"channel_id", r.channelID, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}

	slog.Error("app: giving up on voice channel after max retries",
		"channel_id", r.channelID, "max_retries", r.maxRetries)
}
