package notify

import "context"

// DiagnosticNoOperator is reported when dispatch is requested with no
// bound endpoint. This is a normal outcome, not a fault.
const DiagnosticNoOperator = "no operator bound"

// Delivery classifies the outcome of a single dispatch attempt.
type Delivery struct {
	Delivered  bool   `json:"delivered"`
	Diagnostic string `json:"diagnostic"`
}

// Sender sends one message to one endpoint. *Telegram satisfies it.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Dispatcher delivers alert messages to the bound operator endpoint with
// at-most-once semantics. A failed attempt is classified and surfaced to
// the caller; it is never retried or queued here.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher creates a dispatcher over the given sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch attempts one delivery. An empty endpoint means no operator is
// bound: no network call is made and the outcome says so.
func (d *Dispatcher) Dispatch(ctx context.Context, text, endpointID string) Delivery {
	if endpointID == "" {
		return Delivery{Delivered: false, Diagnostic: DiagnosticNoOperator}
	}
	if err := d.sender.Send(ctx, endpointID, text); err != nil {
		return Delivery{Delivered: false, Diagnostic: err.Error()}
	}
	return Delivery{Delivered: true, Diagnostic: "sent"}
}
