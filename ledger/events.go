package ledger

import (
	"sync"
	"time"

	"xdao.co/keygate/keys"
)

type EventKind string

const (
	EventPurchased         EventKind = "purchased"
	EventRenewed           EventKind = "renewed"
	EventGranted           EventKind = "granted"
	EventKeyDeposited      EventKind = "key-deposited"
	EventCapabilityGranted EventKind = "capability-granted"
	EventParamsUpdated     EventKind = "params-updated"
	EventWithdrawn         EventKind = "withdrawn"
	EventRefundOwed        EventKind = "refund-owed"
	EventRefundClaimed     EventKind = "refund-claimed"
)

// Event is one committed ledger signal.
type Event struct {
	Kind       EventKind
	Identity   keys.Identity
	Amount     uint64
	Expiration uint64
	Time       time.Time
}

// EventSink receives committed events. Record is called while the ledger
// transaction is still serialized, so implementations must not call back
// into the ledger.
type EventSink interface {
	Record(ev Event)
}

// MemorySink stores events in memory (development/testing use).
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of all recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

type nopSink struct{}

func (nopSink) Record(Event) {}
