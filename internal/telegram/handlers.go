package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
	"github.com/tphakala/codeseek/internal/session"
)

// Replies
const (
	msgNoPermission    = "❌ No permission"
	msgWelcome         = "Welcome! Send a catalog code to search every collection, or pick a category below."
	msgUsage           = "Usage: /a <category>, e.g. /a %s"
	msgInvalidCategory = "❌ Invalid category, use one of: %s"
	msgEmptyCategory   = "❌ %s has no records"
	msgSearchFailed    = "⚠️ Search failed, please try again later"
	msgRecommendFailed = "⚠️ Recommendation failed, please try again later"
	msgSessionExpired  = "Results expired, please search again"
	msgPage            = "Page %d/%d, %d results"
)

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		msg := update.Message
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if cmd := msg.Command(); cmd != "start" && cmd != "a" {
		return
	}

	if !b.allowed(msg.From.ID) {
		b.log.Info("rejected command from unauthorized user",
			logger.Int64("user_id", msg.From.ID),
			logger.String("command", msg.Command()))
		b.reply(msg.Chat.ID, msgNoPermission)
		return
	}

	switch msg.Command() {
	case "start":
		reply := tgbotapi.NewMessage(msg.Chat.ID, msgWelcome)
		if len(b.cfg.Categories) > 0 {
			reply.ReplyMarkup = categoryKeyboard(b.cfg.Categories)
		}
		b.send(reply)
	case "a":
		b.handleRecommend(ctx, msg)
	}
}

func (b *Bot) handleRecommend(ctx context.Context, msg *tgbotapi.Message) {
	names := b.cfg.Categories.Names()
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		example := "VR"
		if len(names) > 0 {
			example = names[0]
		}
		b.reply(msg.Chat.ID, fmt.Sprintf(msgUsage, example))
		return
	}

	rec, err := b.searcher.Recommend(ctx, b.cfg.Categories, args[0], b.cfg.SampleSize)
	switch {
	case search.IsUnknownCategory(err):
		b.reply(msg.Chat.ID, fmt.Sprintf(msgInvalidCategory, strings.Join(names, ", ")))
		return
	case err != nil:
		b.log.Error("recommendation failed", logger.String("category", args[0]), logger.Error(err))
		b.reply(msg.Chat.ID, msgRecommendFailed)
		return
	case len(rec.Hits) == 0:
		b.reply(msg.Chat.ID, fmt.Sprintf(msgEmptyCategory, rec.Category))
		return
	}

	b.typing(msg.Chat.ID)
	b.deliver(ctx, msg.Chat.ID, b.pipeline.Recommendations(ctx, rec.Hits))
}

// handleText treats plain text as one or more catalog codes. Text from
// unauthorized users, command-like text and overlong text are ignored.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if !b.allowed(msg.From.ID) {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") || utf8.RuneCountInString(text) > b.cfg.MaxCodeLength {
		return
	}

	b.log.Info("search", logger.Int64("user_id", msg.From.ID), logger.String("text", text))
	b.typing(msg.Chat.ID)

	keywords := strings.Fields(text)
	var (
		hits []record.Hit
		err  error
	)
	if len(keywords) == 1 {
		hits, err = b.searcher.Search(ctx, text)
	} else {
		hits, err = b.searcher.SearchAll(ctx, keywords)
	}
	if err != nil {
		b.log.Error("search failed", logger.String("text", text), logger.Error(err))
		b.reply(msg.Chat.ID, msgSearchFailed)
		return
	}

	if len(hits) == 0 {
		ins := make([]render.Instruction, 0, len(keywords))
		for _, keyword := range keywords {
			ins = append(ins, b.pipeline.Missing(ctx, keyword))
		}
		b.deliver(ctx, msg.Chat.ID, ins)
		return
	}

	if len(hits) <= b.sessions.PageSize() {
		code := ""
		if len(keywords) == 1 {
			code = text
		}
		b.deliver(ctx, msg.Chat.ID, b.pipeline.Hits(ctx, code, hits))
		return
	}

	id := b.sessions.Create(hits)
	if view, ok := b.sessions.Page(id, 0); ok {
		b.sendPage(ctx, msg.Chat.ID, view)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	if !b.allowed(q.From.ID) {
		b.answer(q.ID, msgNoPermission)
		return
	}

	id, page, ok := parsePageData(q.Data)
	if !ok {
		b.answer(q.ID, "")
		return
	}
	view, ok := b.sessions.Page(id, page)
	if !ok {
		b.answer(q.ID, msgSessionExpired)
		return
	}

	b.answer(q.ID, "")
	b.sendPage(ctx, q.Message.Chat.ID, view)
}

// sendPage delivers the hits of a page followed by the navigation message.
func (b *Bot) sendPage(ctx context.Context, chatID int64, view *session.View) {
	b.deliver(ctx, chatID, b.pipeline.Hits(ctx, "", view.Hits))

	nav := tgbotapi.NewMessage(chatID, fmt.Sprintf(msgPage, view.Page+1, view.Pages, view.Total))
	if keyboard := pageKeyboard(view); keyboard != nil {
		nav.ReplyMarkup = keyboard
	}
	b.send(nav)
}

func (b *Bot) deliver(ctx context.Context, chatID int64, ins []render.Instruction) {
	sender := &chatSender{api: b.api, chatID: chatID}
	if err := b.deliverer.DeliverAll(ctx, sender, ins); err != nil {
		b.log.Warn("delivery failed", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("send failed", logger.Error(err))
	}
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("chat action failed", logger.Error(err))
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug("callback answer failed", logger.Error(err))
	}
}
