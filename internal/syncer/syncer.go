// Package syncer keeps a consuming client in step with an event. It prefers
// the push channel and transparently degrades to fixed-interval snapshot
// polling when push is unavailable, resuming push as soon as a dial succeeds.
package syncer

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"hardword-service/internal/realtime"
)

// Mode is the sync state machine's current state.
type Mode int32

const (
	ModeConnecting Mode = iota
	ModePush
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePolling:
		return "polling"
	default:
		return "connecting"
	}
}

// Conn is an established push channel. Messages is closed when the channel
// dies, which sends the syncer back to connecting.
type Conn interface {
	Messages() <-chan realtime.Message
	Close() error
}

// Dialer establishes a push channel; the context carries the connect timeout.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultPollInterval   = 3 * time.Second
)

// Syncer drives the {connecting, push, polling} state machine.
type Syncer struct {
	dialer    Dialer
	onMessage func(realtime.Message)
	poll      func(ctx context.Context)

	connectTimeout time.Duration
	pollInterval   time.Duration

	mode atomic.Int32
}

// Options tune the state machine; zero values fall back to defaults
// (5 s connect timeout, 3 s poll interval, redial each poll interval).
type Options struct {
	ConnectTimeout time.Duration
	PollInterval   time.Duration
}

// New builds a Syncer. onMessage receives every push notification; poll
// re-fetches the authoritative snapshots and runs only while push is down.
func New(dialer Dialer, onMessage func(realtime.Message), poll func(ctx context.Context), opts Options) *Syncer {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Syncer{
		dialer:         dialer,
		onMessage:      onMessage,
		poll:           poll,
		connectTimeout: opts.ConnectTimeout,
		pollInterval:   opts.PollInterval,
	}
}

// Mode reports the current state; safe from any goroutine.
func (s *Syncer) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *Syncer) setMode(m Mode) {
	s.mode.Store(int32(m))
}

// Run blocks until ctx is canceled, alternating between push and polling.
// Staleness is bounded: a missed push is absorbed by the next poll tick.
func (s *Syncer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		s.setMode(ModeConnecting)
		conn, err := s.dial(ctx)
		if err == nil {
			s.runPush(ctx, conn)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("syncer: push unavailable, polling every %s: %v", s.pollInterval, err)
		s.runPolling(ctx)
	}
}

func (s *Syncer) dial(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	return s.dialer.Dial(dialCtx)
}

// runPush consumes the channel until it closes or ctx ends. Every push is a
// nudge to re-fetch, so handlers typically call the same fetchers poll does.
func (s *Syncer) runPush(ctx context.Context, conn Conn) {
	defer conn.Close()
	s.setMode(ModePush)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Messages():
			if !ok {
				return
			}
			if s.onMessage != nil {
				s.onMessage(msg)
			}
		}
	}
}

// runPolling re-fetches snapshots on a fixed interval, retrying the dial on
// the same cadence; an immediate first tick avoids a blank interval.
func (s *Syncer) runPolling(ctx context.Context) {
	s.setMode(ModePolling)
	s.poll(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn, err := s.dial(ctx)
			if err == nil {
				// Push recovered; polling stops here.
				s.runPush(ctx, conn)
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.setMode(ModePolling)
			s.poll(ctx)
		}
	}
}
