package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func untrackKeyboard(channelID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, stop tracking", "untrack:"+channelID),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:-"),
		),
	)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}

	action := parts[0]
	channelID := parts[1]

	b.log.Info("callback",
		"action", action,
		"channel_id", channelID,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case "untrack":
		ch, err := b.store.GetChannel(ctx, channelID)
		if err != nil {
			b.reply(chatID, "That channel is not tracked.")
			return
		}
		if err := b.store.DeleteChannel(ctx, channelID); err != nil {
			b.log.Error("delete channel", "channel_id", channelID, "error", err)
			b.reply(chatID, "Failed to stop tracking the channel.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Stopped tracking %q.", ch.Title))
	case cmdCheck:
		b.handleCheck(ctx, chatID)
	case "noop":
	}
}
