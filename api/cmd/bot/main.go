package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chart-signal/api/internal/app"
	"chart-signal/api/internal/config"
	"chart-signal/api/internal/httpserver"
	"chart-signal/api/internal/logging"
	"chart-signal/api/internal/metrics"
	"chart-signal/api/internal/session"
	"chart-signal/api/internal/telegram"
)

func main() {
	cfg := config.Load()

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		slog.Error("log setup failed", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	metrics.Register()

	if cfg.TelegramBotToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		slog.Error("telegram login failed", "error", err)
		os.Exit(1)
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:        bot,
		Files:      telegram.NewDownloader(cfg.TelegramBotToken, ""),
		Service:    a.Service,
		Engines:    a.Engines,
		EngManager: a.Manager,
		Sessions:   session.NewStore(),
		History:    a.History,
	}

	opts := httpserver.Options{}
	if a.Journal != nil {
		opts.Health = a.DB
		go app.RunPurge(ctx, a.Journal, cfg.JournalMaxDays)
	}

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("bot starting",
		"user", bot.Self.UserName,
		"engines", a.Engines.Names(),
		"default_engine", a.Manager.Default().Name(),
		"journal", a.Journal != nil)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		err = startWebhookMode(ctx, addr, bot, r, webhookURL, opts)
	} else {
		err = startPollingMode(ctx, addr, bot, r, opts)
	}
	if err != nil {
		slog.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("bot stopped")
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, opts httpserver.Options) error {
	// secret webhook path
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return err
	}

	opts.Mount = func(cr chi.Router) {
		cr.Post(path, func(w http.ResponseWriter, req *http.Request) {
			upd, err := bot.HandleUpdate(req)
			if err != nil {
				slog.Warn("bad webhook update", "error", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			// updates outlive the webhook request
			r.HandleUpdate(ctx, *upd)
			w.WriteHeader(http.StatusOK)
		})
	}

	slog.Info("webhook registered", "addr", addr, "path", path)
	return httpserver.Serve(ctx, addr, httpserver.NewRouter(nil, opts))
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, opts httpserver.Options) error {
	// a leftover webhook would make getUpdates fail
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		slog.Warn("deleteWebhook failed", "error", err)
	}

	serve := func(ctx context.Context) error {
		return httpserver.Serve(ctx, addr, httpserver.NewRouter(nil, opts))
	}
	return runAlongside(ctx, serve, func(ctx context.Context) {
		runPolling(ctx, bot, func(upd tgbotapi.Update) {
			r.HandleUpdate(ctx, upd)
		})
	})
}

// runAlongside runs serve and poll until ctx is done. If serve fails first,
// poll is cancelled and the error is returned without waiting for poll, which
// may sit in a long-poll request.
func runAlongside(ctx context.Context, serve func(context.Context) error, poll func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx) }()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		poll(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed, stopping polling", "error", err)
			return err
		}
		return nil
	case <-pollDone:
		cancel()
		return <-errCh
	}
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			slog.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			slog.Warn("polling error", "error", err, "retry_in", d)
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}
