package scheduler

import "github.com/siddhucsk/telegram-reminder-bot/internal/domain"

const successorWarnText = "⚠️ Failed to schedule the next occurrence of your recurring reminder. Please check /list."

func renderDue(sp EntrySpec) string {
	return sp.Priority.Emoji() + " Reminder: " + sp.Message
}

func renderMissed(sp EntrySpec) string {
	return "⚠️ Missed reminder from " + domain.FormatLocal(sp.FireAt, sp.Timezone) + ":\n" + sp.Message
}
