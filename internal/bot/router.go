// Package bot implements the operator command surface: a lookup-table
// command router over the shared state store, and the long-running
// listener that feeds it from the Telegram channel.
package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sipca-labs/aquasentry/pkg/model"
	"github.com/sipca-labs/aquasentry/pkg/notify"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

// Inbound is one decoded operator command.
type Inbound struct {
	Command     string
	Args        []string
	EndpointID  string
	DisplayName string
}

// Router dispatches operator commands to handlers. Handlers hold no state
// across invocations; everything they need is re-read from the store,
// because the evaluation pipeline may write between calls.
type Router struct {
	store    *statestore.Store
	glossary Glossary
	handlers map[string]func(Inbound) string
}

// NewRouter creates a router over the given store and glossary.
func NewRouter(store *statestore.Store, glossary Glossary) *Router {
	if glossary == nil {
		glossary = DefaultGlossary()
	}
	r := &Router{store: store, glossary: glossary}
	r.handlers = map[string]func(Inbound) string{
		"start":  r.handleStart,
		"status": r.handleStatus,
		"help":   r.handleHelp,
		"info":   r.handleInfo,
		"report": r.handleReport,
	}
	return r
}

// Route invokes the handler for the command and returns its reply.
// Unrecognized commands are outside the router's contract and reported
// with ok=false so the caller can ignore them.
func (r *Router) Route(in Inbound) (reply string, ok bool) {
	handler, ok := r.handlers[in.Command]
	if !ok {
		return "", false
	}
	return handler(in), true
}

func (r *Router) handleStart(in Inbound) string {
	binding := model.OperatorBinding{
		EndpointID:  in.EndpointID,
		DisplayName: in.DisplayName,
	}
	if err := r.store.SaveBinding(binding); err != nil {
		return fmt.Sprintf("❌ Could not save the connection: %v", err)
	}

	return fmt.Sprintf(
		"👋 Hello %s!\n\n"+
			"✅ Connected. Quality alerts from the dashboard will be delivered here.\n\n"+
			"Try /status, /help, /info or /report",
		notify.EscapeMarkdown(in.DisplayName))
}

func (r *Router) handleStatus(Inbound) string {
	snap, err := r.store.LoadSnapshot()
	if errors.Is(err, statestore.ErrNotFound) {
		return "🤷 *No recent data.*\nRun an analysis on the dashboard first."
	}
	if err != nil {
		return fmt.Sprintf("❌ Could not read the system state: %v", err)
	}

	icon := "🔴"
	if snap.Label == model.LabelPotable {
		icon = "🟢"
	}

	observed := snap.ObservedAt
	if observed == "" {
		observed = "recently"
	}

	return fmt.Sprintf(
		"%s *CURRENT SYSTEM STATE*\n\n"+
			"💧 *Quality:* %s\n"+
			"🧪 *Recorded pH:* %.2f\n"+
			"📊 *Model confidence:* %.1f%%\n"+
			"🕒 *Last analysis:* %s",
		icon, snap.Label, snap.PH, snap.ConfidencePct, observed)
}

func (r *Router) handleHelp(Inbound) string {
	return "🆘 *ACTION GUIDE: NON-POTABLE WATER*\n\n" +
		"1. 🚫 *STOP:* Halt pumping immediately.\n" +
		"2. 🧪 *CORRECT pH:* Below 6.5 add base; above 8.5 add acid.\n" +
		"3. ⚙️ *FILTERS:* Check carbon filter saturation.\n" +
		"4. 📞 *SUPPORT:* Contact the plant engineer if turbidity is high."
}

func (r *Router) handleInfo(in Inbound) string {
	params := strings.Join(r.glossary.Params(), ", ")
	if len(in.Args) == 0 {
		return fmt.Sprintf("ℹ️ Usage: `/info ph` or `/info turbidity`\nOptions: %s.", params)
	}

	definition, ok := r.glossary.Lookup(in.Args[0])
	if !ok {
		return fmt.Sprintf("❌ Parameter not found. Options: %s.", params)
	}
	return definition
}

func (r *Router) handleReport(in Inbound) string {
	if len(in.Args) == 0 {
		return "📝 Usage: `/report <description of the issue>`"
	}

	entry := model.MaintenanceEntry{
		ID:               uuid.New().String(),
		CreatedAt:        time.Now().UTC(),
		AuthorEndpointID: in.EndpointID,
		FreeText:         strings.Join(in.Args, " "),
	}
	if err := r.store.AppendMaintenance(entry); err != nil {
		return fmt.Sprintf("❌ Could not save the report: %v", err)
	}
	return "📝 Report logged. The maintenance team will see it on the dashboard."
}
