package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/session"
	"chart-signal/api/internal/store"
)

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (service.Outcome, error)
}

type History interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]store.Entry, error)
}

type Router struct {
	Bot        BotAPI
	Files      Fetcher
	Service    Analyzer
	Engines    *analysis.Engines
	EngManager *analysis.Manager
	Sessions   *session.Store
	// History is nil when the journal is disabled.
	History History

	// spawn runs an analysis off the update loop; tests run it inline.
	spawn func(func())
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0 || msg.Document != nil:
		r.acceptPhoto(ctx, *msg)
	default:
		r.send(cid, sendChartText)
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "history":
		r.sendHistory(ctx, cid)
	case "reset":
		r.Sessions.Get(cid).Reset()
		r.send(cid, "Session cleared. "+sendChartText)
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

// handleEngineCommand switches the engine for the chat.
//
//	/engine
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine stub
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		current := "none"
		if cur != nil {
			current = cur.Name() + " (" + cur.GetModel() + ")"
		}
		r.send(chatID, "Current engine: "+current+
			"\nUsage: /engine {"+strings.Join(r.Engines.Names(), "|")+"} [model]")
		return
	}

	eng, err := r.Engines.GetEngine(args[0])
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	if len(args) > 1 {
		if ms, ok := eng.(analysis.ModelSwitcher); ok {
			eng = ms.WithModel(args[1])
		}
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s).", eng.Name(), eng.GetModel()))
}

func (r *Router) sendHistory(ctx context.Context, chatID int64) {
	if r.History == nil {
		r.send(chatID, "History is not available: the analysis journal is disabled.")
		return
	}
	entries, err := r.History.Recent(ctx, chatID, 5)
	if err != nil {
		slog.Error("history lookup failed", "chat_id", chatID, "error", err)
		r.send(chatID, "Could not load history, try again later.")
		return
	}
	r.sendMarkdown(chatID, renderHistory(entries), nil)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
}

func (r *Router) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := r.Bot.Send(msg)
	if err != nil {
		slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
	}
	return sent
}

// SendError shows err the way users may see it: configuration errors by
// name, everything else as the fixed analysis message.
func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, "❌ "+analysis.UserFacing(err))
}

func (r *Router) run(f func()) {
	if r.spawn != nil {
		r.spawn(f)
		return
	}
	go f()
}

const (
	sendChartText = "Send me a chart screenshot (PNG, JPEG or WEBP) as a photo or a file."
	helpText      = "📈 Chart signal bot\n\n" +
		"Send a screenshot of a candlestick chart. I check it, then you press Analyze " +
		"and get a CALL / PUT / NEUTRAL call for the next 1-2 candles.\n\n" +
		"Commands:\n" +
		"/engine [name] [model]: show or switch the analysis engine\n" +
		"/history: your last analyses\n" +
		"/reset: forget the current chart\n\n" +
		"Signals are model output, not financial advice."
)
