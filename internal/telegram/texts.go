package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	startText = "👋 I am a reminder bot.\n\n" +
		"Available commands:\n" +
		"/help — how to use me\n" +
		"/format — reminder text formats\n" +
		"/timezone — set your timezone\n" +
		"/list — your active reminders\n" +
		"/cancel <id> — cancel a reminder\n\n" +
		"Your timezone starts at the server default — set yours with /timezone so reminders fire at your local time."

	helpText = "How to set reminders:\n\n" +
		"1. Set your timezone with /timezone (once).\n" +
		"2. Send a reminder in the structured format — see /format.\n" +
		"3. Or tap a quick-time button below, then send the message text.\n\n" +
		"Managing reminders:\n" +
		"• /list shows everything pending with edit and cancel buttons\n" +
		"• /cancel <id> cancels by id\n\n" +
		"Priorities: 🔴 high, 🟡 medium (default), 🟢 low.\n" +
		"Recurring reminders repeat every N days, weeks or months."

	formatText = "Reminder formats:\n\n" +
		"Structured:\n" +
		"reminder\n" +
		"priority: high\n" +
		"time: 9:00am\n" +
		"date: 25/02/2024\n" +
		"repeat: daily\n" +
		"Take medicine\n\n" +
		"Multiple reminders in one message:\n" +
		"reminder\n" +
		"time: 9:00am\n" +
		"Take medicine\n\n" +
		"time: 2:30pm\n" +
		"Doctor appointment\n\n" +
		"Time formats: 9:00am, 2:30 pm, 14:30.\n" +
		"Date format: DD/MM/YYYY (today if omitted, tomorrow if the time already passed).\n" +
		"Repeat: daily, weekly, monthly, every 2 days, every 3 weeks.\n" +
		"Priority: high, medium, low."

	timezonePrompt = "Select your timezone from these common options, " +
		"or type a timezone name (e.g. 'Asia/Kolkata'):"

	noTimezoneText  = "Please set your time zone first using /timezone."
	noRemindersText = "You don't have any active reminders."
)

// quickTimes maps button labels to their slot keys; order fixed for the
// keyboard layout.
var quickTimes = []struct{ key, label string }{
	{"in_1_hour", "⏰ In 1 hour"},
	{"in_2_hours", "⏰ In 2 hours"},
	{"tonight", "🌙 Tonight (8 PM)"},
	{"tomorrow_morning", "🌅 Tomorrow Morning (9 AM)"},
	{"tomorrow_afternoon", "☀️ Tomorrow Afternoon (2 PM)"},
	{"this_weekend", "🎉 This Weekend"},
}

var timezoneSuggestions = []struct{ tz, label string }{
	{"Asia/Kolkata", "🇮🇳 India (IST)"},
	{"America/New_York", "🇺🇸 New York (EST/EDT)"},
	{"Europe/London", "🇬🇧 London (GMT/BST)"},
	{"Asia/Dubai", "🇦🇪 Dubai (GST)"},
}

func quickTimeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(quickTimes[0].label),
			tgbotapi.NewKeyboardButton(quickTimes[1].label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(quickTimes[2].label),
			tgbotapi.NewKeyboardButton(quickTimes[3].label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(quickTimes[4].label),
			tgbotapi.NewKeyboardButton(quickTimes[5].label),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func timezoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(timezoneSuggestions))
	for _, s := range timezoneSuggestions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.label, "tz_"+s.tz),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func reminderRowKeyboard(id string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", "edit_"+id),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_"+id),
	)
}

func editOptionsKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Change Time", "edit_time_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Change Message", "edit_msg_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Change Recurrence", "edit_recur_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Change Priority", "edit_prio_"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel Editing", "edit_stop_"+id),
		),
	)
}

func priorityKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔴 High", "prio_"+id+"_high"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟡 Medium", "prio_"+id+"_medium"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟢 Low", "prio_"+id+"_low"),
		),
	)
}

func recurrenceKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Daily", "recur_"+id+"_day_1"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Weekly", "recur_"+id+"_week_1"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Monthly", "recur_"+id+"_month_1"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("No Recurrence", "recur_"+id+"_none_0"),
		),
	)
}
