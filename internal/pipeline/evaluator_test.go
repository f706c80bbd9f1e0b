package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipca-labs/aquasentry/internal/bot"
	"github.com/sipca-labs/aquasentry/internal/pipeline"
	"github.com/sipca-labs/aquasentry/pkg/history"
	"github.com/sipca-labs/aquasentry/pkg/model"
	"github.com/sipca-labs/aquasentry/pkg/notify"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

type countingSender struct {
	mu    sync.Mutex
	calls int
	err   error
	last  string
}

func (c *countingSender) Send(_ context.Context, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.last = text
	return c.err
}

func newTestEvaluator(t *testing.T, sender notify.Sender, withHistory bool) (*pipeline.Evaluator, *statestore.Store, *history.Store) {
	t.Helper()
	store, err := statestore.New(t.TempDir())
	require.NoError(t, err)

	var hist *history.Store
	if withHistory {
		hist, err = history.Open(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { hist.Close() })
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return pipeline.NewEvaluator(store, notify.NewDispatcher(sender), hist, logger), store, hist
}

func TestEvaluator_CleanSampleNoDispatch(t *testing.T) {
	sender := &countingSender{}
	evaluator, store, _ := newTestEvaluator(t, sender, false)

	// Operator connects first, as in normal operation.
	router := bot.NewRouter(store, nil)
	_, ok := router.Route(bot.Inbound{Command: "start", EndpointID: "12345", DisplayName: "Ana"})
	require.True(t, ok)

	result, err := evaluator.Evaluate(context.Background(), model.Sample{
		Label:         model.LabelPotable,
		PH:            7.0,
		ConfidencePct: 92.0,
	})
	require.NoError(t, err)

	assert.False(t, result.Event.Triggered)
	assert.Nil(t, result.Delivery)
	assert.Zero(t, sender.calls, "no alert must be dispatched for a clean sample")

	// The snapshot the bot's /status reads is in place.
	reply, ok := router.Route(bot.Inbound{Command: "status", EndpointID: "12345"})
	require.True(t, ok)
	assert.Contains(t, reply, "POTABLE")
	assert.Contains(t, reply, "7.00")
	assert.Contains(t, reply, "92.0")
}

func TestEvaluator_TriggeredDispatchedOnce(t *testing.T) {
	sender := &countingSender{}
	evaluator, store, _ := newTestEvaluator(t, sender, false)
	require.NoError(t, store.SaveBinding(model.OperatorBinding{EndpointID: "12345", DisplayName: "Ana"}))

	result, err := evaluator.Evaluate(context.Background(), model.Sample{
		Label:         model.LabelNotPotable,
		PH:            5.0,
		ConfidencePct: 80.0,
	})
	require.NoError(t, err)

	assert.True(t, result.Event.Triggered)
	require.Len(t, result.Event.Reasons, 2)
	require.NotNil(t, result.Delivery)
	assert.True(t, result.Delivery.Delivered)
	assert.Equal(t, 1, sender.calls)
	assert.Contains(t, sender.last, "WATER QUALITY ALERT")
}

func TestEvaluator_SendFailureSurfacedNotRetried(t *testing.T) {
	sender := &countingSender{err: errors.New("telegram returned status 502: bad gateway")}
	evaluator, store, _ := newTestEvaluator(t, sender, false)
	require.NoError(t, store.SaveBinding(model.OperatorBinding{EndpointID: "12345"}))

	result, err := evaluator.Evaluate(context.Background(), model.Sample{
		Label:         model.LabelNotPotable,
		PH:            5.0,
		ConfidencePct: 80.0,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Delivery)
	assert.False(t, result.Delivery.Delivered)
	assert.Contains(t, result.Delivery.Diagnostic, "status 502")
	assert.Equal(t, 1, sender.calls, "exactly one attempt")
}

func TestEvaluator_NoOperatorBound(t *testing.T) {
	sender := &countingSender{}
	evaluator, _, _ := newTestEvaluator(t, sender, false)

	result, err := evaluator.Evaluate(context.Background(), model.Sample{
		Label:         model.LabelPotable,
		PH:            9.0,
		ConfidencePct: 90.0,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Delivery)
	assert.False(t, result.Delivery.Delivered)
	assert.Equal(t, notify.DiagnosticNoOperator, result.Delivery.Diagnostic)
	assert.Zero(t, sender.calls)
}

func TestEvaluator_SnapshotOverwritten(t *testing.T) {
	sender := &countingSender{}
	evaluator, store, _ := newTestEvaluator(t, sender, false)
	ctx := context.Background()

	_, err := evaluator.Evaluate(ctx, model.Sample{Label: model.LabelPotable, PH: 7.0, ConfidencePct: 90.0})
	require.NoError(t, err)
	_, err = evaluator.Evaluate(ctx, model.Sample{Label: model.LabelPotable, PH: 7.4, ConfidencePct: 95.0})
	require.NoError(t, err)

	snap, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.InDelta(t, 7.4, snap.PH, 0.001)
}

func TestEvaluator_HistoryRecorded(t *testing.T) {
	sender := &countingSender{}
	evaluator, store, hist := newTestEvaluator(t, sender, true)
	require.NoError(t, store.SaveBinding(model.OperatorBinding{EndpointID: "12345"}))
	ctx := context.Background()

	_, err := evaluator.Evaluate(ctx, model.Sample{Label: model.LabelNotPotable, PH: 5.0, ConfidencePct: 80.0})
	require.NoError(t, err)
	_, err = evaluator.Evaluate(ctx, model.Sample{Label: model.LabelPotable, PH: 7.0, ConfidencePct: 92.0})
	require.NoError(t, err)

	records, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var triggered, quiet int
	for _, r := range records {
		if r.Triggered {
			triggered++
			assert.True(t, r.Delivered)
		} else {
			quiet++
		}
	}
	assert.Equal(t, 1, triggered)
	assert.Equal(t, 1, quiet)
}

func TestEvaluator_RejectsUnknownLabel(t *testing.T) {
	sender := &countingSender{}
	evaluator, _, _ := newTestEvaluator(t, sender, false)

	_, err := evaluator.Evaluate(context.Background(), model.Sample{Label: "MAYBE", PH: 7.0})
	assert.Error(t, err)
}
