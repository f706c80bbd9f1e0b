// Package pipeline runs the evaluation side of the core: persist the
// snapshot, apply the alert rules, and page the bound operator when a
// rule fires. It runs once per sample, synchronously, in a context
// independent of the bot listener; the state store is the only thing the
// two contexts share.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sipca-labs/aquasentry/pkg/alert"
	"github.com/sipca-labs/aquasentry/pkg/history"
	"github.com/sipca-labs/aquasentry/pkg/model"
	"github.com/sipca-labs/aquasentry/pkg/notify"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

// Result is the outcome of evaluating one sample. Delivery is nil when no
// alert was triggered.
type Result struct {
	Snapshot model.SampleSnapshot `json:"snapshot"`
	Event    alert.Event          `json:"event"`
	Delivery *notify.Delivery     `json:"delivery,omitempty"`
}

// Evaluator ties snapshot persistence, rule evaluation, and dispatch
// together. history is optional; when present every evaluation is
// recorded with its delivery outcome.
type Evaluator struct {
	store      *statestore.Store
	dispatcher *notify.Dispatcher
	history    *history.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewEvaluator creates an evaluator. history may be nil.
func NewEvaluator(store *statestore.Store, dispatcher *notify.Dispatcher, hist *history.Store, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		store:      store,
		dispatcher: dispatcher,
		history:    hist,
		logger:     logger,
		now:        time.Now,
	}
}

// Evaluate processes one classified sample: the snapshot is written
// first so /status reflects the result even if dispatch fails, then the
// rules run against the same immutable sample, and a triggered event is
// dispatched at most once. A failed delivery is reported in the result,
// never retried.
func (e *Evaluator) Evaluate(ctx context.Context, sample model.Sample) (*Result, error) {
	if !sample.Label.Valid() {
		return nil, fmt.Errorf("unknown sample label %q", sample.Label)
	}

	snapshot := model.SampleSnapshot{
		Label:         sample.Label,
		PH:            sample.PH,
		ConfidencePct: sample.ConfidencePct,
		ObservedAt:    e.now().Format("15:04:05"),
	}
	if err := e.store.SaveSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	event := alert.Evaluate(sample)
	result := &Result{Snapshot: snapshot, Event: event}

	var endpointID string
	if event.Triggered {
		binding, err := e.store.LoadBinding()
		switch {
		case err == nil:
			endpointID = binding.EndpointID
		case errors.Is(err, statestore.ErrNotFound):
			// Dispatch classifies the missing binding itself.
		default:
			return nil, fmt.Errorf("load operator binding: %w", err)
		}

		delivery := e.dispatcher.Dispatch(ctx, notify.FormatAlert(event), endpointID)
		result.Delivery = &delivery

		if delivery.Delivered {
			e.logger.Info("alert dispatched",
				"endpoint", endpointID,
				"reasons", event.Reasons,
			)
		} else {
			e.logger.Warn("alert not delivered",
				"endpoint", endpointID,
				"diagnostic", delivery.Diagnostic,
			)
		}
	}

	if e.history != nil {
		record := history.FromEvent(event, endpointID, result.Delivery)
		if err := e.history.Append(ctx, record); err != nil {
			e.logger.Error("record alert history", "error", err)
		}
	}

	return result, nil
}
