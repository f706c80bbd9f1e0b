package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sipca-labs/aquasentry/pkg/notify"
)

// Channel is the messaging transport the listener runs against.
// *notify.Telegram satisfies it.
type Channel interface {
	GetUpdates(ctx context.Context, offset int64) ([]notify.Update, error)
	Send(ctx context.Context, chatID, text string) error
}

// State is the listener lifecycle state.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

const (
	// Consecutive receive failures tolerated before the transport is
	// considered unrecoverable.
	maxPollFailures = 5

	pollFailureBackoff = 2 * time.Second
	replyTimeout       = 10 * time.Second
)

// Listener is the long-running receive loop. It is the only component
// with an unbounded lifetime; a failure handling one update never leaves
// the loop, only a persistent transport failure does.
type Listener struct {
	channel Channel
	router  *Router
	logger  *slog.Logger
	backoff time.Duration
	state   atomic.Int32
}

// NewListener creates a listener. Credential validation happens when the
// Channel is constructed; a listener is only ever built over a configured
// transport.
func NewListener(channel Channel, router *Router, logger *slog.Logger) *Listener {
	return &Listener{
		channel: channel,
		router:  router,
		logger:  logger,
		backoff: pollFailureBackoff,
	}
}

// State reports the current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Run polls for updates until ctx is cancelled (clean stop, returns nil)
// or the transport fails persistently (crash, returns the error). It does
// not restart itself; restart is an operational action.
func (l *Listener) Run(ctx context.Context) error {
	l.state.Store(int32(StateRunning))
	l.logger.Info("bot listener running",
		"commands", "/start /status /help /info /report")

	var offset int64
	var failures int
	for {
		updates, err := l.channel.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				l.state.Store(int32(StateStopped))
				l.logger.Info("bot listener stopped")
				return nil
			}

			failures++
			if failures >= maxPollFailures {
				l.state.Store(int32(StateCrashed))
				l.logger.Error("bot listener crashed", "failures", failures, "error", err)
				return fmt.Errorf("receive updates: %w", err)
			}

			l.logger.Warn("receive updates failed", "attempt", failures, "error", err)
			select {
			case <-ctx.Done():
				l.state.Store(int32(StateStopped))
				l.logger.Info("bot listener stopped")
				return nil
			case <-time.After(l.backoff):
			}
			continue
		}
		failures = 0

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			l.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate decodes and routes one inbound event. Panics and errors
// are contained here so one bad message cannot take the loop down.
func (l *Listener) handleUpdate(ctx context.Context, update notify.Update) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("update handler panicked", "update_id", update.UpdateID, "panic", r)
		}
	}()

	if update.Message == nil {
		return
	}

	command, args, ok := parseCommand(update.Message.Text)
	if !ok {
		return
	}

	in := Inbound{
		Command:    command,
		Args:       args,
		EndpointID: update.Message.ChatEndpoint(),
	}
	if update.Message.From != nil {
		in.DisplayName = update.Message.From.FirstName
	}

	reply, routed := l.router.Route(in)
	if !routed {
		return
	}

	// A slow send must not stall the next receive indefinitely.
	sendCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	if err := l.channel.Send(sendCtx, in.EndpointID, reply); err != nil {
		l.logger.Error("send reply failed", "command", command, "endpoint", in.EndpointID, "error", err)
	}
}

// parseCommand splits a message like "/info ph" into command name and
// arguments. A "@botname" suffix on the command (group-chat addressing)
// is stripped. Non-command messages report ok=false.
func parseCommand(text string) (command string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	command = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	if command == "" {
		return "", nil, false
	}
	return strings.ToLower(command), fields[1:], true
}
