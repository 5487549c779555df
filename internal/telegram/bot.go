package telegram

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/models"
	"github.com/burjnawas/sitecoord/internal/report"
)

const defaultPollTimeout = 30 // seconds, Telegram long-poll hold

// ReportService triggers on-demand report generation from chat commands.
type ReportService interface {
	GenerateAndPublish(ctx context.Context, siteID string, period report.Period, chatID string) (*models.ReportRecord, error)
}

// BotOptions configures the update loop.
type BotOptions struct {
	SiteID      string
	AdminIDs    []int64
	PhotoDir    string
	Location    *time.Location
	PollTimeout int
}

// Bot consumes Telegram updates, records site log entries, and handles
// operator commands.
type Bot struct {
	client   *Client
	logs     logstore.LogRepository
	settings logstore.SettingsRepository
	reports  ReportService

	siteID      string
	admins      map[int64]bool
	photoDir    string
	location    *time.Location
	pollTimeout int
}

// NewBot wires the update loop to its collaborators.
func NewBot(client *Client, logs logstore.LogRepository, settings logstore.SettingsRepository, reports ReportService, opts BotOptions) *Bot {
	admins := make(map[int64]bool, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = true
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Bot{
		client:      client,
		logs:        logs,
		settings:    settings,
		reports:     reports,
		siteID:      opts.SiteID,
		admins:      admins,
		photoDir:    opts.PhotoDir,
		location:    loc,
		pollTimeout: timeout,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("telegram bot started for site %s", b.siteID)
	var offset int64
	for {
		select {
		case <-ctx.Done():
			log.Println("telegram bot stopped")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("telegram bot stopped")
				return
			}
			log.Printf("failed to fetch updates: %v, retrying", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	switch {
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		b.recordPhoto(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.recordText(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *Message) {
	command := strings.Fields(msg.Text)[0]
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch command {
	case "/start":
		b.reply(ctx, chatID, "Ahlan! I record your site logs. Send text or photos here and I will keep them for the daily report. Use /help for commands.")
	case "/help":
		b.reply(ctx, chatID, "Commands:\n/report - compile today's site report\n/set_alert_destination - send weather alerts to this chat\n/set_safety_channel - send daily notices to this chat\n\nAny other text or photo is recorded as a log entry.")
	case "/report":
		b.handleReport(ctx, msg, chatID)
	case "/set_alert_destination":
		b.handleSetAlertDestination(ctx, msg, chatID)
	case "/set_safety_channel":
		b.handleSetSafetyChannel(ctx, msg, chatID)
	default:
		b.reply(ctx, chatID, "Unknown command. Use /help.")
	}
}

func (b *Bot) handleReport(ctx context.Context, msg *Message, chatID string) {
	if !b.isAdmin(msg) {
		b.reply(ctx, chatID, "Only site admins can request reports.")
		return
	}
	b.reply(ctx, chatID, "Compiling today's report, this can take a minute...")

	period := report.DayPeriod(time.Now().In(b.location), b.location)
	go func() {
		_, err := b.reports.GenerateAndPublish(context.WithoutCancel(ctx), b.siteID, period, chatID)
		if err != nil {
			if errors.Is(err, report.ErrCompileInFlight) {
				b.reply(context.WithoutCancel(ctx), chatID, "A report for this site is already being compiled, please wait for it to finish.")
				return
			}
			log.Printf("report generation failed for site %s: %v", b.siteID, err)
			b.reply(context.WithoutCancel(ctx), chatID, "Report generation failed, please try again later.")
		}
	}()
}

func (b *Bot) handleSetAlertDestination(ctx context.Context, msg *Message, chatID string) {
	if !b.isAdmin(msg) {
		b.reply(ctx, chatID, "Only site admins can change alert settings.")
		return
	}
	if err := b.settings.SetAlertDestination(ctx, b.siteID, chatID); err != nil {
		log.Printf("failed to set alert destination: %v", err)
		b.reply(ctx, chatID, "Could not save the setting, please try again.")
		return
	}
	b.reply(ctx, chatID, "✅ Weather alerts for this site will be sent to this chat.")
}

func (b *Bot) handleSetSafetyChannel(ctx context.Context, msg *Message, chatID string) {
	if !b.isAdmin(msg) {
		b.reply(ctx, chatID, "Only site admins can change alert settings.")
		return
	}
	if err := b.settings.SetSafetyChannel(ctx, chatID); err != nil {
		log.Printf("failed to set safety channel: %v", err)
		b.reply(ctx, chatID, "Could not save the setting, please try again.")
		return
	}
	b.reply(ctx, chatID, "✅ Daily safety notices will be sent to this chat.")
}

func (b *Bot) recordText(ctx context.Context, msg *Message) {
	entry := models.LogEntry{
		Timestamp:  time.Unix(msg.Date, 0).In(b.location),
		AuthorID:   strconv.FormatInt(authorID(msg), 10),
		AuthorName: authorName(msg),
		Kind:       models.EntryKindText,
		PayloadRef: msg.Text,
		SiteID:     b.siteID,
	}
	if err := b.logs.Record(ctx, &entry); err != nil {
		log.Printf("failed to record text entry: %v", err)
		return
	}
	metrics.EntriesRecordedTotal.WithLabelValues(string(models.EntryKindText)).Inc()
}

func (b *Bot) recordPhoto(ctx context.Context, msg *Message) {
	// Telegram sends photo sizes smallest first, take the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	ts := time.Unix(msg.Date, 0).In(b.location)
	destPath := filepath.Join(b.photoDir, ts.Format("2006-01-02"), photo.FileUniqueID+".jpg")

	if err := b.client.DownloadFile(ctx, photo.FileID, destPath); err != nil {
		log.Printf("failed to download photo: %v", err)
		return
	}
	entry := models.LogEntry{
		Timestamp:  ts,
		AuthorID:   strconv.FormatInt(authorID(msg), 10),
		AuthorName: authorName(msg),
		Kind:       models.EntryKindPhoto,
		PayloadRef: destPath,
		Caption:    msg.Caption,
		SiteID:     b.siteID,
	}
	if err := b.logs.Record(ctx, &entry); err != nil {
		log.Printf("failed to record photo entry: %v", err)
		return
	}
	metrics.EntriesRecordedTotal.WithLabelValues(string(models.EntryKindPhoto)).Inc()
	b.reply(ctx, strconv.FormatInt(msg.Chat.ID, 10), "📸 Photo saved to the site log.")
}

func (b *Bot) isAdmin(msg *Message) bool {
	return msg.From != nil && b.admins[msg.From.ID]
}

func (b *Bot) reply(ctx context.Context, chatID, text string) {
	if err := b.client.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("failed to send reply: %v", err)
	}
}

func authorID(msg *Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func authorName(msg *Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.Username != "" {
		return msg.From.Username
	}
	return msg.From.FirstName
}
