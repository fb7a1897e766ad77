package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursewatch/internal/model"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent    []sentMessage
	failFor map[int64]error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if err, failing := f.failFor[msg.ChatID]; failing {
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) forChat(chatID int64) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyPlain(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 5, 0, testLogger())

	err := n.Notify(context.Background(), []model.UserID{1, 2}, "hello", false)
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "hello", sender.sent[0].text)
	assert.Equal(t, int64(1), sender.sent[0].chatID)
	assert.Equal(t, int64(2), sender.sent[1].chatID)
}

func TestNotifyUrgentRepeatsMarker(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 5, 0, testLogger())

	err := n.Notify(context.Background(), []model.UserID{7}, "section open", true)
	require.NoError(t, err)

	msgs := sender.forChat(7)
	require.Len(t, msgs, 6, "main message plus five markers")
	assert.Equal(t, "section open", msgs[0].text)
	for _, m := range msgs[1:] {
		assert.Equal(t, urgentMarker, m.text)
	}
}

func TestNotifyIsolatesRecipientFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]error{2: errors.New("blocked")}}
	n := NewTelegram(sender, 2, 0, testLogger())

	err := n.Notify(context.Background(), []model.UserID{1, 2, 3}, "hello", false)
	assert.Error(t, err, "the failed recipient is reported")

	assert.Len(t, sender.forChat(1), 1)
	assert.Empty(t, sender.forChat(2))
	assert.Len(t, sender.forChat(3), 1, "delivery continues past the failure")
}

func TestNotifyUrgentStopsMarkersOnCancel(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 1000, 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, []model.UserID{1}, "open", true)
	require.NoError(t, err)

	// Main message and the first marker go out; the marker schedule
	// stops once the context is done.
	msgs := sender.forChat(1)
	require.Len(t, msgs, 2)
	assert.Equal(t, "open", msgs[0].text)
	assert.Equal(t, urgentMarker, msgs[1].text)
}
