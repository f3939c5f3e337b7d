// Package bot implements the Telegram command surface and the notifier.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"ytnotify/internal/config"
	"ytnotify/internal/fetcher"
	"ytnotify/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CycleRunner triggers one polling cycle on demand (the /check command).
type CycleRunner interface {
	RunCycle(ctx context.Context) (int, []string)
}

// Bot handles user commands for managing tracked channels and delivers
// new-video notifications to the configured chat.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	fetch  fetcher.Client
	cfg    *config.Config
	log    *slog.Logger
	cycles CycleRunner

	// Telegram allows ~20 messages/sec per bot.
	limiter *rate.Limiter
}

// New creates a Bot with the given Telegram token, storage, and fetcher.
func New(token string, store storage.Storage, fetch fetcher.Client, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		store:   store,
		fetch:   fetch,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}, nil
}

// SetCycleRunner wires the scheduler in after construction, enabling /check.
func (b *Bot) SetCycleRunner(c CycleRunner) {
	b.cycles = c
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From != nil && !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Notify implements the scheduler's notifier: it delivers one message to the
// configured chat, throttled to stay under Telegram's rate limit.
func (b *Bot) Notify(ctx context.Context, message string) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	b.SendMessage(b.cfg.TelegramChatID, message)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "track":
		b.handleTrack(ctx, chatID, args)
	case "untrack":
		b.handleUntrack(ctx, chatID, args)
	case "hide":
		b.handleSetHidden(ctx, chatID, args, true)
	case "show":
		b.handleSetHidden(ctx, chatID, args, false)
	case "list":
		b.handleList(ctx, chatID)
	case "settings":
		b.handleSettings(ctx, chatID)
	case "interval":
		b.handleInterval(ctx, chatID, args)
	case "window":
		b.handleWindow(ctx, chatID, args)
	case "limit":
		b.handleLimit(ctx, chatID, args)
	case "notify":
		b.handleNotify(ctx, chatID, args)
	case cmdCheck:
		b.handleCheck(ctx, chatID)
	case "videos":
		b.handleVideos(ctx, chatID, args)
	case "search":
		b.handleSearch(ctx, chatID, args)
	case "clearcache":
		b.handleClearCache(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
