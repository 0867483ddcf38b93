package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finset/internal/core"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionDeleted Action = "deleted"
)

// TransactionEvent announces a change to the transaction store. Created
// events carry the full record so consumers never read back from the API.
type TransactionEvent struct {
	Action      Action            `json:"action"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Action:      ActionCreated,
		ID:          tx.ID,
		Transaction: &tx,
		Timestamp:   time.Now().UTC(),
	}
}

func NewDeletedEvent(id string) *TransactionEvent {
	return &TransactionEvent{
		Action:    ActionDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey names the event for logs, e.g. "transaction.created".
func (e *TransactionEvent) RoutingKey() string {
	return "transaction." + string(e.Action)
}

func (e *TransactionEvent) Validate() error {
	if e.ID == "" {
		return errors.New("event without id")
	}
	switch e.Action {
	case ActionCreated:
		if e.Transaction == nil {
			return fmt.Errorf("created event %s without transaction", e.ID)
		}
	case ActionDeleted:
	default:
		return fmt.Errorf("unknown event action %q", e.Action)
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
