package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ytnotify/internal/fetcher"
	"ytnotify/internal/model"
)

const cmdCheck = "check"

const helpText = `Commands:
/track <channel_id> [title] - start tracking a channel
/untrack <channel_id> - stop tracking a channel
/hide <channel_id> - keep tracking but skip during checks
/show <channel_id> - include a hidden channel again
/list - show tracked channels
/settings - show current settings
/interval <minutes> - set check interval (1-1440)
/window <days> - how far back to look for videos (1-30)
/limit <n> - max videos counted per channel per check (1-50)
/notify <on|off> - toggle notification messages
/check - run a check right now
/videos <channel_id> - fetch and remember a channel's recent videos
/search <query> - search YouTube for channels
/clearcache [channel_id] - forget remembered videos`

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, "Hi! I watch your YouTube channels and tell you when they post new videos.\n\n"+helpText)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText)
}

func (b *Bot) handleTrack(ctx context.Context, chatID int64, args string) {
	id, title, err := ParseTrackArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /track <channel_id> [title]")
		return
	}

	if title == "" {
		title, err = b.fetch.ChannelTitle(ctx, id)
		if err != nil {
			if errors.Is(err, fetcher.ErrUnavailable) {
				b.reply(chatID, "Cannot look up the channel title without an API key. Use /track <channel_id> <title>.")
				return
			}
			b.log.Error("channel title", "channel_id", id, "error", err)
			b.reply(chatID, "Failed to look up the channel. Check the channel id and try again.")
			return
		}
	}

	ch := model.Channel{ID: id, Title: title}
	if err := b.store.CreateChannel(ctx, &ch); err != nil {
		b.log.Error("create channel", "channel_id", id, "error", err)
		b.reply(chatID, "Failed to track the channel. It may already be tracked.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Now tracking %q (%s).", title, id))
}

func (b *Bot) handleUntrack(ctx context.Context, chatID int64, args string) {
	id, err := ParseChannelArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /untrack <channel_id>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id)
	if err != nil {
		b.reply(chatID, "That channel is not tracked.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Stop tracking %q? Its remembered videos will be forgotten too.", ch.Title))
	msg.ReplyMarkup = untrackKeyboard(ch.ID)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleSetHidden(ctx context.Context, chatID int64, args string, hidden bool) {
	verb := "shown"
	usage := "Usage: /show <channel_id>"
	if hidden {
		verb = "hidden"
		usage = "Usage: /hide <channel_id>"
	}

	id, err := ParseChannelArg(args)
	if err != nil {
		b.reply(chatID, usage)
		return
	}

	ch, err := b.store.GetChannel(ctx, id)
	if err != nil {
		b.reply(chatID, "That channel is not tracked.")
		return
	}

	ch.Hidden = hidden
	if err := b.store.UpdateChannel(ctx, ch); err != nil {
		b.log.Error("update channel", "channel_id", id, "error", err)
		b.reply(chatID, "Failed to update the channel.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Channel %q is now %s.", ch.Title, verb))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	channels, err := b.store.ListChannels(ctx)
	if err != nil {
		b.log.Error("list channels", "error", err)
		b.reply(chatID, "Failed to load channels.")
		return
	}

	counts := make(map[string]int, len(channels))
	for _, ch := range channels {
		videos, err := b.store.ListVideos(ctx, ch.ID)
		if err != nil {
			b.log.Error("list videos", "channel_id", ch.ID, "error", err)
			continue
		}
		counts[ch.ID] = len(videos)
	}

	b.reply(chatID, FormatChannelList(channels, counts))
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) {
	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		b.log.Error("get settings", "error", err)
		b.reply(chatID, "Failed to load settings.")
		return
	}

	b.reply(chatID, FormatSettings(settings))
}

func (b *Bot) handleInterval(ctx context.Context, chatID int64, args string) {
	minutes, err := ParseIntArg(args, 1, 1440)
	if err != nil {
		b.reply(chatID, "Usage: /interval <minutes> (1-1440)")
		return
	}

	b.updateSettings(ctx, chatID, func(s *model.Settings) {
		s.CheckRateMinutes = minutes
	}, fmt.Sprintf("Check interval set to %d minute(s). Takes effect after the current wait.", minutes))
}

func (b *Bot) handleWindow(ctx context.Context, chatID int64, args string) {
	days, err := ParseIntArg(args, 1, 30)
	if err != nil {
		b.reply(chatID, "Usage: /window <days> (1-30)")
		return
	}

	b.updateSettings(ctx, chatID, func(s *model.Settings) {
		s.VideosAnteriorityDays = days
	}, fmt.Sprintf("Now looking %d day(s) back for videos.", days))
}

func (b *Bot) handleLimit(ctx context.Context, chatID int64, args string) {
	limit, err := ParseIntArg(args, 1, 50)
	if err != nil {
		b.reply(chatID, "Usage: /limit <n> (1-50)")
		return
	}

	b.updateSettings(ctx, chatID, func(s *model.Settings) {
		s.VideosPerChannel = limit
	}, fmt.Sprintf("Counting at most %d video(s) per channel per check.", limit))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, args string) {
	enabled, err := ParseToggleArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /notify <on|off>")
		return
	}

	state := "off"
	if enabled {
		state = "on"
	}

	b.updateSettings(ctx, chatID, func(s *model.Settings) {
		s.EnableNotifications = enabled
	}, fmt.Sprintf("Notifications are now %s.", state))
}

func (b *Bot) updateSettings(ctx context.Context, chatID int64, change func(*model.Settings), confirmation string) {
	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		b.log.Error("get settings", "error", err)
		b.reply(chatID, "Failed to load settings.")
		return
	}

	change(&settings)

	if err := b.store.UpdateSettings(ctx, settings); err != nil {
		b.log.Error("update settings", "error", err)
		b.reply(chatID, "Failed to save settings.")
		return
	}

	b.reply(chatID, confirmation)
}

func (b *Bot) handleCheck(ctx context.Context, chatID int64) {
	if b.cycles == nil {
		b.reply(chatID, "Checking is not available yet, try again in a moment.")
		return
	}

	count, _ := b.cycles.RunCycle(ctx)
	if count == 0 {
		b.reply(chatID, "Checked all channels: no new videos.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Checked all channels: %d new video(s).", count))
}

func (b *Bot) handleVideos(ctx context.Context, chatID int64, args string) {
	id, err := ParseChannelArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /videos <channel_id>")
		return
	}

	ch, err := b.store.GetChannel(ctx, id)
	if err != nil {
		b.reply(chatID, "That channel is not tracked.")
		return
	}

	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		b.log.Error("get settings", "error", err)
		settings = model.DefaultSettings()
	}

	since := time.Now().AddDate(0, 0, -settings.VideosAnteriorityDays)
	events, err := b.fetch.RecentUploads(ctx, ch.ID, since)
	if err != nil {
		b.log.Error("recent uploads", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to fetch recent uploads.")
		return
	}

	ids := uniqueVideoIDs(events)
	if len(ids) == 0 {
		b.reply(chatID, fmt.Sprintf("%q has no videos in the last %d day(s).", ch.Title, settings.VideosAnteriorityDays))
		return
	}

	videos, err := b.fetch.VideoDetails(ctx, ids)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnavailable) {
			b.reply(chatID, "Video details need an API key; set YOUTUBE_API_KEY to use /videos.")
			return
		}
		b.log.Error("video details", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to fetch video details.")
		return
	}

	for i := range videos {
		videos[i].ChannelID = ch.ID
	}

	if err := b.store.SaveVideos(ctx, ch.ID, videos); err != nil {
		b.log.Error("save videos", "channel_id", ch.ID, "error", err)
	}

	b.reply(chatID, FormatVideoList(ch, videos))
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /search <query>")
		return
	}

	results, err := b.fetch.SearchChannels(ctx, args)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnavailable) {
			b.reply(chatID, "Search needs an API key; set YOUTUBE_API_KEY to use /search.")
			return
		}
		b.log.Error("search channels", "query", args, "error", err)
		b.reply(chatID, "Search failed, try again later.")
		return
	}

	b.reply(chatID, FormatSearchResults(args, results))
}

func (b *Bot) handleClearCache(ctx context.Context, chatID int64, args string) {
	if args == "" {
		if err := b.store.ClearVideos(ctx, ""); err != nil {
			b.log.Error("clear videos", "error", err)
			b.reply(chatID, "Failed to clear remembered videos.")
			return
		}
		b.reply(chatID, "Forgot all remembered videos.")
		return
	}

	id, err := ParseChannelArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /clearcache [channel_id]")
		return
	}

	ch, err := b.store.GetChannel(ctx, id)
	if err != nil {
		b.reply(chatID, "That channel is not tracked.")
		return
	}

	if err := b.store.ClearVideos(ctx, ch.ID); err != nil {
		b.log.Error("clear videos", "channel_id", ch.ID, "error", err)
		b.reply(chatID, "Failed to clear remembered videos.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Forgot remembered videos for %q.", ch.Title))
}

func uniqueVideoIDs(events []model.UploadEvent) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.VideoID == "" {
			continue
		}
		if _, ok := seen[ev.VideoID]; ok {
			continue
		}
		seen[ev.VideoID] = struct{}{}
		ids = append(ids, ev.VideoID)
	}
	return ids
}
