package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"chart-signal/api/internal/intake"
	"chart-signal/api/internal/metrics"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/session"
)

// acceptPhoto downloads a photo or image document, validates it and makes it
// the chat's current chart.
func (r *Router) acceptPhoto(ctx context.Context, msg tgbotapi.Message) {
	cid := msg.Chat.ID
	fileID, declared, err := pickImageFile(msg)
	if err != nil {
		metrics.ObserveRejected(service.SourceTelegram)
		r.send(cid, "⚠️ "+err.Error())
		return
	}

	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		slog.Error("telegram getFile failed", "chat_id", cid, "error", err)
		r.send(cid, "Could not download the image, please send it again.")
		return
	}
	data, ctype, err := r.Files.Fetch(ctx, file.FilePath)
	if err != nil {
		slog.Error("telegram download failed", "chat_id", cid, "error", err)
		r.send(cid, "Could not download the image, please send it again.")
		return
	}
	if declared == "" {
		declared = ctype
	}

	img, prev, err := intake.Load(data, declared)
	if err != nil {
		metrics.ObserveRejected(service.SourceTelegram)
		r.send(cid, "⚠️ "+err.Error())
		return
	}
	if err := r.Sessions.Get(cid).SetImage(img, prev); err != nil {
		if errors.Is(err, session.ErrBusy) {
			r.send(cid, busyText)
		}
		return
	}

	kb := makeAnalyzeKeyboard()
	r.sendMarkdown(cid, renderPreview(prev, r.EngManager.Get(cid)), &kb)
}

// pickImageFile returns the largest photo size, or an image document. Photos
// carry no MIME type; it is sniffed after download.
func pickImageFile(msg tgbotapi.Message) (fileID, mime string, err error) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, "", nil
	}
	d := msg.Document
	if d == nil {
		return "", "", intake.ErrEmptyImage
	}
	if d.MimeType != "" && !strings.HasPrefix(strings.ToLower(d.MimeType), "image/") {
		return "", "", intake.ErrUnsupportedImage
	}
	if d.FileSize > maxImageBytes {
		return "", "", errors.New("file is too large, Telegram bots can download up to 20 MB")
	}
	return d.FileID, d.MimeType, nil
}
