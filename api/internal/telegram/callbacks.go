package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/session"
)

const (
	cbAnalyze = "analyze"
	cbLogic   = "show_logic"
	cbAnother = "analyze_another"

	busyText = "⏳ The chart is still being analyzed, please wait."
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch cb.Data {
	case cbAnalyze:
		r.onAnalyze(ctx, cid, cb.Message.MessageID)
	case cbLogic:
		r.onShowLogic(cid)
	case cbAnother:
		r.onAnalyzeAnother(cid, cb.Message.MessageID)
	}
}

// onAnalyze starts one analysis of the current chart. Pressing the button
// again while it runs is rejected by the session.
func (r *Router) onAnalyze(ctx context.Context, chatID int64, msgID int) {
	t, err := r.Sessions.Get(chatID).Begin()
	switch {
	case errors.Is(err, session.ErrBusy):
		r.send(chatID, busyText)
		return
	case errors.Is(err, session.ErrNoImage):
		r.send(chatID, sendChartText)
		return
	}
	r.clearKeyboard(chatID, msgID)

	status := r.sendMarkdown(chatID, "⏳ Analyzing chart…", nil)
	ctx = context.WithoutCancel(ctx)
	r.run(func() { r.runAnalysis(ctx, chatID, t, status.MessageID) })
}

func (r *Router) runAnalysis(ctx context.Context, chatID int64, t session.Ticket, statusID int) {
	out, err := r.Service.Analyze(ctx, service.Request{
		Image:  t.Image,
		ChatID: chatID,
		Source: service.SourceTelegram,
	})
	if !r.Sessions.Get(chatID).Complete(t, out.Result, out.Warnings, err) {
		return
	}
	if err != nil {
		kb := makeRetryKeyboard()
		r.replace(chatID, statusID, "❌ "+analysis.UserFacing(err), &kb, "")
		return
	}
	kb := makeResultKeyboard()
	r.replace(chatID, statusID, renderResult(out), &kb, tgbotapi.ModeMarkdown)
}

func (r *Router) onShowLogic(chatID int64) {
	snap := r.Sessions.Get(chatID).Snapshot()
	if snap.Result == nil {
		r.send(chatID, "No analysis result yet. "+sendChartText)
		return
	}
	r.sendMarkdown(chatID, renderLogic(*snap.Result), nil)
}

func (r *Router) onAnalyzeAnother(chatID int64, msgID int) {
	r.Sessions.Get(chatID).Reset()
	r.clearKeyboard(chatID, msgID)
	r.send(chatID, sendChartText)
}

// replace edits the status message in place, or sends a new one when the
// status message could not be sent.
func (r *Router) replace(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup, mode string) {
	if msgID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = mode
		if kb != nil {
			msg.ReplyMarkup = *kb
		}
		_, _ = r.Bot.Send(msg)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = mode
	edit.ReplyMarkup = kb
	_, _ = r.Bot.Send(edit)
}

func (r *Router) clearKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.Bot.Request(edit)
}
