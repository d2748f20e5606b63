package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func makeAnalyzeKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("📊 Analyze", cbAnalyze)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func makeRetryKeyboard() tgbotapi.InlineKeyboardMarkup {
	retry := tgbotapi.NewInlineKeyboardButtonData("🔁 Try again", cbAnalyze)
	another := tgbotapi.NewInlineKeyboardButtonData("🖼 Another chart", cbAnother)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(retry, another))
}

func makeResultKeyboard() tgbotapi.InlineKeyboardMarkup {
	logic := tgbotapi.NewInlineKeyboardButtonData("🧠 View logic", cbLogic)
	another := tgbotapi.NewInlineKeyboardButtonData("🖼 Analyze another", cbAnother)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(logic, another))
}

// esc escapes legacy Markdown control characters in model-supplied text.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
