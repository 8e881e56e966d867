package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/astra-ai/kernel/pkg/store"
	"github.com/google/uuid"
)

// ReplayLimit bounds how many trailing events a late subscriber (or a
// `?once=1` SSE request) receives in one replay — matches the Snapshot
// Builder's last_events cap so both paths show the same recent window.
const ReplayLimit = 200

// subscriberBuffer bounds how many undelivered events queue per subscriber
// before Broadcast drops the slowest one rather than blocking the emitting
// goroutine indefinitely.
const subscriberBuffer = 64

// Bus persists Event records through Store and fans them out to live
// subscribers, one fan-out set per run_id (spec.md §4.1).
type Bus struct {
	store store.Store

	mu          sync.RWMutex
	subscribers map[string]map[string]chan *store.Event // run_id -> subscriber_id -> channel
}

// NewBus constructs a Bus backed by s.
func NewBus(s store.Store) *Bus {
	return &Bus{
		store:       s,
		subscribers: make(map[string]map[string]chan *store.Event),
	}
}

// Emit validates type against the closed enum, persists the event, and only
// then broadcasts it to subscribers of run_id — a store failure must never
// produce a broadcast with no corresponding persisted row.
func (b *Bus) Emit(ctx context.Context, runID string, typ Type, message string, payload map[string]any, level string, taskID, stepID *string) (*store.Event, error) {
	if !IsValid(typ) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	if level == "" {
		level = store.LevelInfo
	}
	if payload == nil {
		payload = map[string]any{}
	}

	e := &store.Event{
		RunID:   runID,
		TaskID:  taskID,
		StepID:  stepID,
		Type:    string(typ),
		Message: message,
		Payload: payload,
		Level:   level,
	}
	persisted, err := b.store.AppendEvent(ctx, e)
	if err != nil {
		slog.Error("events: append failed", "run_id", runID, "type", typ, "error", err)
		return nil, fmt.Errorf("append event: %w", err)
	}

	b.broadcast(runID, persisted)
	return persisted, nil
}

// broadcast copies the subscriber channel set under the read lock, then
// sends outside of it — a slow subscriber must not stall Emit for others.
func (b *Bus) broadcast(runID string, e *store.Event) {
	b.mu.RLock()
	subs := b.subscribers[runID]
	chans := make([]chan *store.Event, 0, len(subs))
	for _, ch := range subs {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- e:
		default:
			slog.Warn("events: subscriber buffer full, dropping event", "run_id", runID, "type", e.Type)
		}
	}
}

// Subscribe registers a new subscriber for runID and returns a channel of
// live events plus an unsubscribe function the caller must call exactly
// once (typically when the SSE request's context is done).
func (b *Bus) Subscribe(runID string) (<-chan *store.Event, func()) {
	id := uuid.NewString()
	ch := make(chan *store.Event, subscriberBuffer)

	b.mu.Lock()
	if b.subscribers[runID] == nil {
		b.subscribers[runID] = make(map[string]chan *store.Event)
	}
	b.subscribers[runID][id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[runID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subscribers, runID)
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// SubscriberCount reports the number of live subscribers for runID — used by
// tests to poll instead of sleeping.
func (b *Bus) SubscriberCount(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[runID])
}

// Replay returns up to ReplayLimit events for runID after afterID, in append
// order — used both for `?once=1` SSE requests and to backfill a fresh
// subscriber before it starts receiving live events.
func (b *Bus) Replay(ctx context.Context, runID string, afterID int64) ([]*store.Event, error) {
	return b.store.ListEventsSince(ctx, runID, afterID, ReplayLimit)
}
