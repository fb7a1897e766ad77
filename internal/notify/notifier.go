package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"coursewatch/internal/model"
)

// urgentMarker is the attention signal repeated after an urgent message.
const urgentMarker = "⚠️"

// Notifier delivers a message to a set of users. Urgent mode repeats
// an attention marker after the main message.
type Notifier interface {
	Notify(ctx context.Context, users []model.UserID, text string, urgent bool) error
}

// Sender is the narrow slice of the bot API the notifier needs.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers notifications through the Telegram bot API. A
// failure for one recipient never aborts delivery to the rest.
type Telegram struct {
	sender  Sender
	repeats int
	delay   time.Duration
	logger  *slog.Logger
}

func NewTelegram(sender Sender, repeats int, delay time.Duration, logger *slog.Logger) *Telegram {
	return &Telegram{
		sender:  sender,
		repeats: repeats,
		delay:   delay,
		logger:  logger.With("component", "notify"),
	}
}

// Notify sends text to every user. With urgent set, each successful
// delivery is followed by the attention marker repeated a fixed number
// of times with a fixed delay. Per-recipient failures are logged and
// collected; the remaining users are still attempted.
func (t *Telegram) Notify(ctx context.Context, users []model.UserID, text string, urgent bool) error {
	var errs []error
	for _, user := range users {
		if err := t.send(user, text); err != nil {
			t.logger.Error("delivery failed", "user", user, "error", err)
			errs = append(errs, fmt.Errorf("user %d: %w", user, err))
			continue
		}
		if urgent {
			t.alert(ctx, user)
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) send(user model.UserID, text string) error {
	msg := tgbotapi.NewMessage(int64(user), text)
	_, err := t.sender.Send(msg)
	return err
}

// alert sends the repeated attention marker. The delay honors ctx so
// shutdown does not hang on the repeat schedule, but a marker that
// fails to send is only logged.
func (t *Telegram) alert(ctx context.Context, user model.UserID) {
	for i := 0; i < t.repeats; i++ {
		if err := t.send(user, urgentMarker); err != nil {
			t.logger.Error("urgent marker failed", "user", user, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.delay):
		}
	}
}
