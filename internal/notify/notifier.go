package notify

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v3"

	"driverreview/internal/logger"
	"driverreview/internal/models"
)

const dateLayout = "2006-01-02 15:04 MST"

type Notifier interface {
	Notify(ctx context.Context, d models.Decision) error
}

type Nop struct{}

func (Nop) Notify(context.Context, models.Decision) error { return nil }

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram posts every decision to a single admin chat.
type Telegram struct {
	bot    sender
	chatID tele.ChatID
	log    logger.ILogger
}

// NewTelegram builds an offline bot: it only sends and never polls for
// updates, so it does not compete with other consumers of the same token.
func NewTelegram(token string, chatID int64, log logger.ILogger) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return newTelegram(b, chatID, log)
}

func newTelegram(bot sender, chatID int64, log logger.ILogger) (*Telegram, error) {
	if err := InitTemplates(); err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: tele.ChatID(chatID), log: log}, nil
}

func (t *Telegram) Notify(ctx context.Context, d models.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := templateRejected
	if d.Approved {
		name = templateApproved
	}

	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	text, err := renderMessage(name, messageData{
		FullName:   d.FullName,
		DriverID:   d.DriverID,
		TelegramID: d.TelegramID,
		Reasons:    d.Reasons,
		Date:       decidedAt.UTC().Format(dateLayout),
	})
	if err != nil {
		return err
	}

	if _, err = t.bot.Send(t.chatID, text, tele.ModeMarkdownV2); err != nil {
		t.log.Error("Failed to send Telegram notification",
			logger.Int64("telegram_id", d.TelegramID),
			logger.Error(err))
		return err
	}

	t.log.Debug("Telegram notification sent", logger.Int64("telegram_id", d.TelegramID))
	return nil
}
