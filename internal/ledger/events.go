package ledger

import "context"

// Event is a structured record emitted by a program during a transaction.
// Ordinal is its position among the events of the transaction.
// Events are only delivered once the transaction has committed.
type Event struct {
	Signature string      `json:"signature"`
	Ordinal   int         `json:"ordinal"`
	Slot      uint64      `json:"slot"`
	BlockTime int64       `json:"block_time"`
	ProgramID string      `json:"program_id"`
	Name      string      `json:"name"`
	Payload   interface{} `json:"payload"`
}

// EventSink receives the events of each committed transaction.
type EventSink interface {
	Publish(ctx context.Context, events []Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, events []Event) error

func (f EventSinkFunc) Publish(ctx context.Context, events []Event) error {
	return f(ctx, events)
}
