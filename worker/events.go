package worker

import "github.com/kedgaks/golos/protocol"

const (
	TechspecRewardEvent = "techspec_reward"
	WorkerRewardEvent   = "worker_reward"
)

// Event is a virtual operation produced by the cashout. Author and Permlink
// identify the paid techspec.
type Event struct {
	Type      string         `json:"type"`
	Recipient string         `json:"recipient"`
	Author    string         `json:"author"`
	Permlink  string         `json:"permlink"`
	Amount    protocol.Asset `json:"amount"`
}

// EventSink receives virtual operations in the order they happen.
type EventSink interface {
	Emit(ev Event)
}

// EventLog is an EventSink that keeps events in memory.
type EventLog struct {
	Events []Event
}

func (l *EventLog) Emit(ev Event) { l.Events = append(l.Events, ev) }

// Drain returns the collected events and empties the log.
func (l *EventLog) Drain() []Event {
	out := l.Events
	l.Events = nil
	return out
}
