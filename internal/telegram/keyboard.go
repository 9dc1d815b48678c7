package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tphakala/codeseek/internal/search"
	"github.com/tphakala/codeseek/internal/session"
)

const (
	pagePrefix      = "page"
	buttonsPerRow   = 2
	recommendButton = "/a "
)

// categoryKeyboard offers one recommendation button per category.
func categoryKeyboard(categories search.Categories) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, name := range categories.Names() {
		row = append(row, tgbotapi.NewKeyboardButton(recommendButton+name))
		if len(row) == buttonsPerRow {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// pageData encodes a pagination callback.
func pageData(id string, page int) string {
	return fmt.Sprintf("%s:%s:%d", pagePrefix, id, page)
}

// parsePageData decodes a pagination callback.
func parsePageData(data string) (id string, page int, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != pagePrefix || parts[1] == "" {
		return "", 0, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil || page < 0 {
		return "", 0, false
	}
	return parts[1], page, true
}

// pageKeyboard returns the navigation buttons of a page, nil for a single page.
func pageKeyboard(view *session.View) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if view.HasPrev() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("« Prev", pageData(view.ID, view.Page-1)))
	}
	if view.HasNext() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next »", pageData(view.ID, view.Page+1)))
	}
	if len(row) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}
