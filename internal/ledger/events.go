package ledger

import (
	"time"

	"github.com/google/uuid"

	"tokenledger.mini/tlm/internal/types"
)

// EventType names an observable ledger event.
type EventType string

const (
	EventMint     EventType = "mint"
	EventBurn     EventType = "burn"
	EventTransfer EventType = "transfer"
	EventApproval EventType = "approval"
	EventStake    EventType = "stake"
	EventUnstake  EventType = "unstake"
)

// Event is emitted exactly once after each successful mutating operation,
// never on failure. Events exist for external indexers; the ledger never
// consumes its own events. The ID is a UUID so feed consumers can dedupe.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	From      types.Address `json:"from,omitempty"`
	To        types.Address `json:"to,omitempty"`
	Owner     types.Address `json:"owner,omitempty"`
	Spender   types.Address `json:"spender,omitempty"`
	Staker    types.Address `json:"staker,omitempty"`
	Amount    string        `json:"amount"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventSink receives emitted events. Sinks are called synchronously after the
// mutation commits, in subscription order; a sink must not call back into the
// ledger.
type EventSink interface {
	OnEvent(Event)
}

// SinkFunc adapts a plain function to an EventSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// Subscribe registers a sink for all future events.
func (l *Ledger) Subscribe(s EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// emit stamps and fans an event out to every sink. Called with l.mu held,
// after all mutations for the operation have been applied.
func (l *Ledger) emit(ev Event) {
	ev.ID = uuid.New().String()
	ev.Timestamp = time.Now().UTC()
	for _, s := range l.sinks {
		s.OnEvent(ev)
	}
}
