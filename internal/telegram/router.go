package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/scheduler"
	"github.com/siddhucsk/telegram-reminder-bot/internal/store"
)

// Pending conversational flows, keyed by chat.
const (
	pendingQuickMessage = "await_quick_message" // quick-time picked, waiting for text
	pendingEditTime     = "await_edit_time"
	pendingEditMessage  = "await_edit_message"
)

// pendingState holds the in-flight step of a multi-message flow. In-memory
// only; a restart simply drops half-finished conversations.
type pendingState struct {
	kind       string
	reminderID string    // edit flows
	quickAt    time.Time // quick-time flows, already in the user's location
}

// Router wires Telegram updates to handlers and holds minimal in-memory
// state.
type Router struct {
	sender       *Sender
	log          *zap.Logger
	repo         store.Repo
	sched        *scheduler.Scheduler
	maxReminders int
	defaultTZ    string

	mu    sync.RWMutex
	state map[int64]*pendingState
}

func NewRouter(sender *Sender, log *zap.Logger, repo store.Repo, sched *scheduler.Scheduler, maxReminders int, defaultTZ string) *Router {
	return &Router{
		sender:       sender,
		log:          log,
		repo:         repo,
		sched:        sched,
		maxReminders: maxReminders,
		defaultTZ:    defaultTZ,
		state:        make(map[int64]*pendingState),
	}
}

func (r *Router) setPending(chatID int64, s *pendingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// takePending returns and clears the pending state for a chat.
func (r *Router) takePending(chatID int64) *pendingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state[chatID]
	delete(r.state, chatID)
	return s
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil && upd.Message.From != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		userID := msg.From.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID, userID)
		case strings.HasPrefix(text, "/help"):
			r.handleHelp(ctx, chatID)
		case strings.HasPrefix(text, "/format"):
			r.handleFormat(ctx, chatID)
		case strings.HasPrefix(text, "/timezone"):
			r.handleTimezone(ctx, chatID)
		case strings.HasPrefix(text, "/list"):
			r.handleList(ctx, chatID, userID)
		case strings.HasPrefix(text, "/cancel"):
			r.handleCancelCommand(ctx, chatID, userID, text)
		default:
			r.handleText(ctx, chatID, userID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID
		userID := cb.From.ID
		_ = r.sender.Request(tgbotapi.NewCallback(cb.ID, ""))

		switch {
		case strings.HasPrefix(data, "tz_"):
			r.handleTimezonePick(ctx, chatID, userID, strings.TrimPrefix(data, "tz_"))
		case strings.HasPrefix(data, "cancel_"):
			r.handleCancelButton(ctx, chatID, userID, strings.TrimPrefix(data, "cancel_"))
		case strings.HasPrefix(data, "edit_time_"):
			r.askEditTime(ctx, chatID, strings.TrimPrefix(data, "edit_time_"))
		case strings.HasPrefix(data, "edit_msg_"):
			r.askEditMessage(ctx, chatID, strings.TrimPrefix(data, "edit_msg_"))
		case strings.HasPrefix(data, "edit_prio_"):
			r.askEditPriority(ctx, chatID, strings.TrimPrefix(data, "edit_prio_"))
		case strings.HasPrefix(data, "edit_recur_"):
			r.askEditRecurrence(ctx, chatID, strings.TrimPrefix(data, "edit_recur_"))
		case strings.HasPrefix(data, "edit_stop_"):
			r.clearPending(chatID)
			r.reply(chatID, "✅ Edit cancelled. Use /list to see your reminders.")
		case strings.HasPrefix(data, "edit_"):
			r.handleEditMenu(ctx, chatID, userID, strings.TrimPrefix(data, "edit_"))
		case strings.HasPrefix(data, "prio_"):
			r.handleSetPriority(ctx, chatID, userID, strings.TrimPrefix(data, "prio_"))
		case strings.HasPrefix(data, "recur_"):
			r.handleSetRecurrence(ctx, chatID, userID, strings.TrimPrefix(data, "recur_"))
		default:
			// Unknown callback, ignore silently.
		}
	}
}

func (r *Router) reply(chatID int64, text string) {
	if err := r.sender.SendMessage(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
