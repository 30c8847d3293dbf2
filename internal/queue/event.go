// Package queue publishes merge and link events for downstream consumers,
// such as search indexers that must drop absorbed quotes.
package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type EventType string

const (
	EventQuoteMerged EventType = "quote.merged"
	EventQuoteLinked EventType = "quote.linked"
)

// Event is published after the change it describes was committed.
// For quote.merged QuoteID is the canonical quote and RelatedIDs the absorbed
// ones; for quote.linked RelatedIDs holds the counterpart.
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id,omitempty"`
	QuoteID    uint      `json:"quote_id"`
	RelatedIDs []uint    `json:"related_ids"`
	GroupID    uint      `json:"group_id,omitempty"`
	Language   string    `json:"language,omitempty"`
	Method     string    `json:"method,omitempty"`
	Confidence int       `json:"confidence,omitempty"`
	At         time.Time `json:"at"`
}

// Key partitions events by quote.
func (e Event) Key() []byte {
	return []byte(strconv.FormatUint(uint64(e.QuoteID), 10))
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

var _ Publisher = Nop{}

type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) Publish(context.Context, Event) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

var _ Publisher = (*Memory)(nil)

// Memory keeps published events in memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *Memory) Close() error {
	return nil
}
