// Package feed subscribes to the decision stream over WebSocket and owns the
// in-process append-only decision sequence. The sequence only ever grows;
// consumers are notified with the full sequence and track their own offset.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trademaxxer/paper-engine/internal/model"
)

// GrowthFunc is invoked with the full sequence whenever it grows.
type GrowthFunc func([]model.Decision)

// Subscriber maintains the connection to the decision feed with exponential
// reconnect backoff. Replayed messages after a reconnect are de-duplicated
// by their monotonic sequence number.
type Subscriber struct {
	url        string
	minBackoff time.Duration
	maxBackoff time.Duration
	onGrowth   GrowthFunc

	mu      sync.Mutex
	seq     []model.Decision
	lastSeq int64
}

// NewSubscriber creates a subscriber. onGrowth runs on the read goroutine;
// it must be fast and must not block on network I/O.
func NewSubscriber(url string, minBackoff, maxBackoff time.Duration, onGrowth GrowthFunc) *Subscriber {
	return &Subscriber{
		url:        url,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		onGrowth:   onGrowth,
	}
}

// Run dials and reads until ctx is done, reconnecting with exponential
// backoff on any error. Must be called in its own goroutine.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := s.minBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			slog.Warn("decision feed dial failed",
				"url", s.url,
				"retry_in", backoff.String(),
				"err", err,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.maxBackoff)
			continue
		}

		slog.Info("decision feed connected", "url", s.url)
		backoff = s.minBackoff

		s.readLoop(ctx, conn)
		conn.Close()
	}
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("decision feed read error, reconnecting", "err", err)
			}
			return
		}

		var d model.Decision
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("malformed decision message, skipping", "err", err)
			continue
		}
		s.Append(d)
	}
}

// Append adds a decision to the sequence and notifies the growth callback.
// Messages whose sequence number is not beyond the last accepted one are
// dropped as reconnect replays. Exported for stub feeds and tests.
func (s *Subscriber) Append(d model.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.Sequence != 0 && d.Sequence <= s.lastSeq {
		return
	}
	if d.Sequence != 0 {
		s.lastSeq = d.Sequence
	}
	s.seq = append(s.seq, d)

	if s.onGrowth != nil {
		// Full-sequence copy: consumers track their own seen offset.
		full := make([]model.Decision, len(s.seq))
		copy(full, s.seq)
		s.onGrowth(full)
	}
}

// Sequence returns a copy of the current decision sequence.
func (s *Subscriber) Sequence() []model.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Decision, len(s.seq))
	copy(out, s.seq)
	return out
}
