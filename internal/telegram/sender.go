package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatSender delivers rendered instructions to one chat.
type chatSender struct {
	api    API
	chatID int64
}

func (s *chatSender) SendText(ctx context.Context, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(s.chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(msg)
	return err
}

func (s *chatSender) SendRemotePhoto(ctx context.Context, url, caption string) error {
	return s.sendPhoto(ctx, tgbotapi.FileURL(url), caption)
}

func (s *chatSender) SendLocalPhoto(ctx context.Context, path, caption string) error {
	return s.sendPhoto(ctx, tgbotapi.FilePath(path), caption)
}

func (s *chatSender) sendPhoto(ctx context.Context, file tgbotapi.RequestFileData, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(s.chatID, file)
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(photo)
	return err
}
