package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/domain"
	"github.com/siddhucsk/telegram-reminder-bot/internal/scheduler"
	"github.com/siddhucsk/telegram-reminder-bot/internal/store"
)

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID, userID int64) {
	r.ensureUser(ctx, userID)
	r.reply(chatID, startText)
}

// ensureUser registers a first-time user with the default timezone so they
// can set reminders right away; an existing row is left untouched.
func (r *Router) ensureUser(ctx context.Context, userID int64) {
	if _, err := r.repo.GetUser(ctx, userID); err == nil || !errors.Is(err, store.ErrNotFound) {
		return
	}
	if err := r.repo.SetTimezone(ctx, userID, r.defaultTZ, r.maxReminders); err != nil {
		r.log.Warn("register user failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (r *Router) handleHelp(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, helpText)
	msg.ReplyMarkup = quickTimeKeyboard()
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleFormat(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, formatText)
	msg.ReplyMarkup = quickTimeKeyboard()
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleTimezone(ctx context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, timezonePrompt)
	msg.ReplyMarkup = timezoneKeyboard()
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleTimezonePick(ctx context.Context, chatID, userID int64, tz string) {
	r.saveTimezone(ctx, chatID, userID, tz)
}

func (r *Router) saveTimezone(ctx context.Context, chatID, userID int64, tz string) {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		r.reply(chatID, "❌ Invalid timezone. Example: Asia/Kolkata")
		return
	}
	if err := r.repo.SetTimezone(ctx, userID, canonical, r.maxReminders); err != nil {
		r.log.Error("set timezone failed", zap.Int64("user_id", userID), zap.Error(err))
		r.reply(chatID, "❌ Could not save your timezone. Please try again later.")
		return
	}
	r.reply(chatID, "✅ Time zone set to "+canonical+".\n\n"+
		"You can now set reminders! Use /format to see reminder formats.")
}

// --- Listing and cancelling ---

func (r *Router) handleList(ctx context.Context, chatID, userID int64) {
	u, err := r.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reply(chatID, noTimezoneText)
			return
		}
		r.log.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
		r.reply(chatID, "❌ Error reading your reminders.")
		return
	}

	reminders, err := r.sched.ListActive(ctx, userID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("user_id", userID), zap.Error(err))
		r.reply(chatID, "❌ Error reading your reminders.")
		return
	}
	if len(reminders) == 0 {
		r.reply(chatID, noRemindersText)
		return
	}

	var (
		b    strings.Builder
		rows [][]tgbotapi.InlineKeyboardButton
	)
	b.WriteString("Your Active Reminders:\n\n")
	for _, rem := range reminders {
		fmt.Fprintf(&b, "🕐 %s\n", domain.FormatLocal(rem.FireAt, u.Timezone))
		fmt.Fprintf(&b, "%s %s\n", rem.Priority.Emoji(), rem.Message)
		if rem.Recurring() {
			fmt.Fprintf(&b, "🔄 Repeats every %d %s(s)\n", rem.RecurInterval, rem.RecurUnit)
		}
		fmt.Fprintf(&b, "ID: %s\n\n", rem.ID)
		rows = append(rows, reminderRowKeyboard(rem.ID))
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleCancelCommand(ctx context.Context, chatID, userID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		r.reply(chatID, "Please provide a reminder ID. Use /list to see your reminders and their IDs.")
		return
	}
	r.cancelByID(ctx, chatID, userID, fields[1])
}

func (r *Router) handleCancelButton(ctx context.Context, chatID, userID int64, id string) {
	r.cancelByID(ctx, chatID, userID, id)
}

func (r *Router) cancelByID(ctx context.Context, chatID, userID int64, id string) {
	changed, err := r.sched.CancelReminder(ctx, id, userID)
	if err != nil {
		r.log.Error("cancel failed", zap.String("reminder_id", id), zap.Error(err))
		r.reply(chatID, "❌ Could not cancel the reminder. Please try again later.")
		return
	}
	if !changed {
		r.reply(chatID, "❌ Reminder not found. Use /list to see your active reminders.")
		return
	}
	r.reply(chatID, "✅ Reminder "+id+" cancelled.")
}

// --- Free-form text: pending flows, quick times, structured reminders ---

func (r *Router) handleText(ctx context.Context, chatID, userID int64, text string) {
	if st := r.takePending(chatID); st != nil {
		switch st.kind {
		case pendingQuickMessage:
			r.finishQuickTime(ctx, chatID, userID, st.quickAt, text)
		case pendingEditTime:
			r.finishEditTime(ctx, chatID, userID, st.reminderID, text)
		case pendingEditMessage:
			r.finishEditMessage(ctx, chatID, userID, st.reminderID, text)
		}
		return
	}

	if key, ok := quickTimeKey(text); ok {
		r.startQuickTime(ctx, chatID, userID, key)
		return
	}

	if looksStructured(text) || strings.HasPrefix(strings.ToLower(text), "remind") {
		r.handleStructured(ctx, chatID, userID, text)
		return
	}

	// A bare IANA zone name sets the timezone, matching the /timezone
	// free-text path.
	if strings.Contains(text, "/") || text == "UTC" {
		if _, err := domain.ValidateTZ(text); err == nil {
			r.saveTimezone(ctx, chatID, userID, text)
			return
		}
	}

	r.reply(chatID, "I didn't understand that. Use /format to see reminder formats.")
}

func (r *Router) handleStructured(ctx context.Context, chatID, userID int64, text string) {
	u, loc, ok := r.userLocation(ctx, chatID, userID)
	if !ok {
		return
	}
	parsed, err := ParseReminders(text, time.Now().In(loc))
	if err != nil {
		r.reply(chatID, "❌ "+err.Error()+"\nUse /format to see the correct format.")
		return
	}
	for _, p := range parsed {
		r.scheduleParsed(ctx, chatID, userID, u.Timezone, p)
	}
}

func (r *Router) scheduleParsed(ctx context.Context, chatID, userID int64, tz string, p domain.ParsedReminder) {
	id, err := r.sched.ScheduleNew(ctx, userID, chatID, p)
	if err != nil {
		r.reply(chatID, r.errText(err, p.Message))
		return
	}

	at, rerr := domain.ResolveLocal(p.Year, p.Month, p.Day, p.Hour, p.Minute, tz)
	if rerr != nil {
		at = time.Now()
	}
	prio := p.Priority
	if prio == "" {
		prio = domain.PriorityMedium
	}
	resp := fmt.Sprintf("%s Reminder set for %s:\n%s", prio.Emoji(), domain.FormatLocal(at, tz), p.Message)
	if p.RecurUnit != domain.UnitNone {
		resp += fmt.Sprintf("\n🔄 Repeats every %d %s(s)", p.RecurInterval, p.RecurUnit)
	}
	resp += "\nID: " + id
	r.reply(chatID, resp)
}

func (r *Router) errText(err error, message string) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return noTimezoneText
	case errors.Is(err, store.ErrQuotaExceeded):
		return "❌ You have reached your reminder limit. Cancel some with /list first."
	case errors.Is(err, scheduler.ErrPastTime):
		return "❌ Cannot set reminder for past time: " + message
	case errors.Is(err, domain.ErrInvalidRecurrence):
		return "❌ Invalid recurrence. Use /format to see the options."
	case errors.Is(err, domain.ErrInvalidTimezone):
		return "❌ Your saved timezone is no longer valid. Please set it again with /timezone."
	case errors.Is(err, store.ErrStorageUnavailable):
		return "❌ Storage is busy right now. Please try again in a moment."
	default:
		r.log.Error("schedule failed", zap.Error(err))
		return "❌ Error setting reminder. Use /format to see the correct format."
	}
}

// userLocation loads the user and their zone, prompting for /timezone when
// either is missing.
func (r *Router) userLocation(ctx context.Context, chatID, userID int64) (*domain.User, *time.Location, bool) {
	u, err := r.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reply(chatID, noTimezoneText)
		} else {
			r.log.Error("get user failed", zap.Int64("user_id", userID), zap.Error(err))
			r.reply(chatID, "❌ Error reading your settings.")
		}
		return nil, nil, false
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		r.reply(chatID, "❌ Your saved timezone is no longer valid. Please set it again with /timezone.")
		return nil, nil, false
	}
	return u, loc, true
}

// --- Quick-time flow ---

func quickTimeKey(text string) (string, bool) {
	for _, qt := range quickTimes {
		if qt.label == text {
			return qt.key, true
		}
	}
	return "", false
}

// quickTimeAt resolves a quick-time slot against the user's current local
// time.
func quickTimeAt(key string, now time.Time) time.Time {
	y, m, d := now.Date()
	switch key {
	case "in_1_hour":
		return now.Add(time.Hour)
	case "in_2_hours":
		return now.Add(2 * time.Hour)
	case "tonight":
		return time.Date(y, m, d, 20, 0, 0, 0, now.Location())
	case "tomorrow_morning":
		return time.Date(y, m, d+1, 9, 0, 0, 0, now.Location())
	case "tomorrow_afternoon":
		return time.Date(y, m, d+1, 14, 0, 0, 0, now.Location())
	case "this_weekend":
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		return time.Date(y, m, d+days, 10, 0, 0, 0, now.Location())
	}
	return now
}

func (r *Router) startQuickTime(ctx context.Context, chatID, userID int64, key string) {
	_, loc, ok := r.userLocation(ctx, chatID, userID)
	if !ok {
		return
	}
	r.setPending(chatID, &pendingState{
		kind:    pendingQuickMessage,
		quickAt: quickTimeAt(key, time.Now().In(loc)),
	})
	r.reply(chatID, "Great! Now send me the reminder message.")
}

func (r *Router) finishQuickTime(ctx context.Context, chatID, userID int64, at time.Time, text string) {
	u, _, ok := r.userLocation(ctx, chatID, userID)
	if !ok {
		return
	}
	p := domain.ParsedReminder{
		Message: text,
		Year:    at.Year(),
		Month:   at.Month(),
		Day:     at.Day(),
		Hour:    at.Hour(),
		Minute:  at.Minute(),
	}
	r.scheduleParsed(ctx, chatID, userID, u.Timezone, p)
}

// --- Edit flows ---

func (r *Router) handleEditMenu(ctx context.Context, chatID, userID int64, id string) {
	u, _, ok := r.userLocation(ctx, chatID, userID)
	if !ok {
		return
	}
	rem, err := r.repo.GetReminder(ctx, id, userID)
	if err != nil {
		r.reply(chatID, "❌ Reminder not found or already completed.")
		return
	}

	var b strings.Builder
	b.WriteString("Editing Reminder\n\nCurrent settings:\n")
	fmt.Fprintf(&b, "🕐 %s\n", domain.FormatLocal(rem.FireAt, u.Timezone))
	fmt.Fprintf(&b, "%s Priority: %s\n", rem.Priority.Emoji(), rem.Priority)
	fmt.Fprintf(&b, "📝 Message: %s\n", rem.Message)
	if rem.Recurring() {
		fmt.Fprintf(&b, "🔄 Repeats: every %d %s(s)\n", rem.RecurInterval, rem.RecurUnit)
	}
	b.WriteString("\nWhat would you like to change?")

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = editOptionsKeyboard(id)
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) askEditTime(ctx context.Context, chatID int64, id string) {
	r.setPending(chatID, &pendingState{kind: pendingEditTime, reminderID: id})
	r.reply(chatID, "Please send the new time in one of these formats:\n"+
		"• 3:00pm\n• 15:00\n• 25/02/2024 3:00pm")
}

func (r *Router) askEditMessage(ctx context.Context, chatID int64, id string) {
	r.setPending(chatID, &pendingState{kind: pendingEditMessage, reminderID: id})
	r.reply(chatID, "Please send the new message for this reminder.")
}

func (r *Router) askEditPriority(ctx context.Context, chatID int64, id string) {
	msg := tgbotapi.NewMessage(chatID, "Choose the priority level:")
	msg.ReplyMarkup = priorityKeyboard(id)
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) askEditRecurrence(ctx context.Context, chatID int64, id string) {
	msg := tgbotapi.NewMessage(chatID, "Choose the recurrence pattern:")
	msg.ReplyMarkup = recurrenceKeyboard(id)
	if err := r.sender.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) finishEditTime(ctx context.Context, chatID, userID int64, id, text string) {
	u, loc, ok := r.userLocation(ctx, chatID, userID)
	if !ok {
		return
	}
	at, err := parseTimeSpec(text, time.Now().In(loc))
	if err != nil {
		r.reply(chatID, "❌ Invalid time format. Examples:\n• 3:00pm\n• 15:00\n• 25/02/2024 3:00pm")
		return
	}
	if !at.After(time.Now()) {
		r.reply(chatID, "❌ Cannot set reminder for past time.")
		return
	}
	r.applyEdit(ctx, chatID, userID, id, store.ReminderUpdate{FireAt: &at},
		"✅ Time updated to "+domain.FormatLocal(at, u.Timezone)+"!\nUse /list to see your reminders.")
}

func (r *Router) finishEditMessage(ctx context.Context, chatID, userID int64, id, text string) {
	if len(text) > 512 {
		r.reply(chatID, "❌ Too long. Please keep it under 512 characters.")
		return
	}
	r.applyEdit(ctx, chatID, userID, id, store.ReminderUpdate{Message: &text},
		"✅ Message updated! Use /list to see your reminders.")
}

func (r *Router) handleSetPriority(ctx context.Context, chatID, userID int64, data string) {
	id, prioStr, found := strings.Cut(data, "_")
	if !found {
		return
	}
	prio, ok := domain.ParsePriority(prioStr)
	if !ok {
		return
	}
	r.applyEdit(ctx, chatID, userID, id, store.ReminderUpdate{Priority: &prio},
		"✅ Priority updated to "+prio.Emoji()+" "+string(prio)+"! Use /list to see your reminders.")
}

func (r *Router) handleSetRecurrence(ctx context.Context, chatID, userID int64, data string) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return
	}
	id := parts[0]
	unit := domain.UnitNone
	interval := 0
	if parts[1] != "none" {
		unit = domain.Unit(parts[1])
		interval = 1
	}
	r.applyEdit(ctx, chatID, userID, id, store.ReminderUpdate{RecurUnit: &unit, RecurInterval: &interval},
		"✅ Recurrence pattern updated! Use /list to see your reminders.")
}

func (r *Router) applyEdit(ctx context.Context, chatID, userID int64, id string, upd store.ReminderUpdate, okText string) {
	changed, err := r.sched.EditReminder(ctx, id, userID, chatID, upd)
	if err != nil {
		r.log.Error("edit failed", zap.String("reminder_id", id), zap.Error(err))
		r.reply(chatID, "❌ Failed to update reminder. Please try again later.")
		return
	}
	if !changed {
		r.reply(chatID, "❌ Failed to update reminder. It might have been cancelled or completed.")
		return
	}
	r.reply(chatID, okText)
}
