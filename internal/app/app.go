package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/siddhucsk/telegram-reminder-bot/internal/config"
	"github.com/siddhucsk/telegram-reminder-bot/internal/scheduler"
	"github.com/siddhucsk/telegram-reminder-bot/internal/store"
	"github.com/siddhucsk/telegram-reminder-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	sched   *scheduler.Scheduler
	router  *telegram.Router
	cron    *cron.Cron
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting reminder-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Int("max_reminders", a.cfg.MaxReminders),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath, a.log)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	sender := telegram.NewSender(a.bot, a.log)
	a.sched = scheduler.New(a.repo, a.log, sender)
	a.router = telegram.NewRouter(sender, a.log, a.repo, a.sched, a.cfg.MaxReminders, a.cfg.DefaultTZ)

	// Re-arm persisted reminders before accepting updates, so edits cannot
	// race the sweep.
	if err := a.sched.Recover(ctx); err != nil {
		a.log.Error("recovery sweep failed", zap.Error(err))
		return err
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc("@daily", a.retentionSweep); err != nil {
		return err
	}
	a.cron.Start()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			<-a.cron.Stop().Done()
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// retentionSweep drops completed and cancelled rows older than the
// configured retention window.
func (a *App) retentionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -a.cfg.RetentionDays)
	n, err := a.repo.DeleteOldTerminal(ctx, cutoff)
	if err != nil {
		a.log.Error("retention sweep failed", zap.Error(err))
		return
	}
	a.log.Info("retention sweep done", zap.Int64("deleted", n))
}
