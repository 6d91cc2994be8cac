package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const sendTimeout = 10 * time.Second

// Sender pushes outgoing messages through a global rate limiter so that
// reminder bursts (recovery sweeps, multi-reminder messages) stay under
// Telegram's ~30 msg/s bot limit. It is the delivery sink for the scheduler.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewSender(bot *tgbotapi.BotAPI, log *zap.Logger) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log,
	}
}

// SendMessage sends plain text to a chat, blocking on the limiter.
func (s *Sender) SendMessage(chatID int64, text string) error {
	return s.Send(tgbotapi.NewMessage(chatID, text))
}

// Send pushes any chattable (keyboards, markdown messages) through the
// same limiter.
func (s *Sender) Send(c tgbotapi.Chattable) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Send(c)
	return err
}

// Request answers callback queries; these do not count against the
// message limit but share the limiter for simplicity.
func (s *Sender) Request(c tgbotapi.Chattable) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Request(c)
	return err
}
