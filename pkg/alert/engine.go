// Package alert evaluates classified water samples against the alerting
// rules. Evaluation is a pure function: no clock, no state, no I/O.
package alert

import (
	"fmt"

	"github.com/sipca-labs/aquasentry/pkg/model"
)

// Regulatory pH bounds for drinking water.
const (
	PHMin = 6.5
	PHMax = 8.5
)

// Event is the outcome of evaluating one sample. It is consumed
// immediately by the dispatcher and never persisted as-is.
type Event struct {
	Triggered bool         `json:"triggered"`
	Reasons   []string     `json:"reasons,omitempty"`
	Sample    model.Sample `json:"sample"`
}

// Evaluate applies the alert rules to a sample. Rules are independent and
// OR-combined: any one firing triggers the event, and every firing rule
// contributes a reason in rule order.
func Evaluate(sample model.Sample) Event {
	event := Event{Sample: sample}

	// Model rule: the classifier flagged the sample as unsafe.
	if sample.Label == model.LabelNotPotable {
		event.Triggered = true
		event.Reasons = append(event.Reasons,
			fmt.Sprintf("model flagged risk (confidence=%.1f%%)", sample.ConfidencePct))
	}

	// Regulatory rule: pH outside the legal range regardless of what the
	// model thinks.
	if sample.PH < PHMin || sample.PH > PHMax {
		event.Triggered = true
		event.Reasons = append(event.Reasons,
			fmt.Sprintf("pH out of safe range (%.1f)", sample.PH))
	}

	return event
}
