// Package notify delivers operational notifications to a Telegram chat.
// Delivery is fire-and-forget: the request path never waits on Telegram and
// failures are logged, not returned.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
)

const sendTimeout = 5 * time.Second

// Telegram posts HTML-formatted messages through the Bot API.
type Telegram struct {
	client *resty.Client
	chatID string
	logger logging.Logger
}

// NewTelegram creates a notifier. An empty token or chat ID yields a
// disabled notifier whose Send is a no-op.
func NewTelegram(botToken, chatID string, logger logging.Logger) *Telegram {
	t := &Telegram{chatID: chatID, logger: logger}
	if botToken == "" || chatID == "" {
		logger.Warn("Telegram notifications disabled: missing bot token or chat id")
		return t
	}
	t.client = resty.New().
		SetBaseURL("https://api.telegram.org/bot" + botToken).
		SetTimeout(sendTimeout).
		SetRetryCount(1)
	return t
}

// Enabled reports whether the notifier has credentials.
func (t *Telegram) Enabled() bool {
	return t.client != nil
}

// Send posts a message tagged with an uppercased channel prefix. It returns
// immediately; the HTTP call runs in a goroutine.
func (t *Telegram) Send(channel, message string) {
	if !t.Enabled() {
		return
	}
	go func() {
		if err := t.deliver(channel, message); err != nil {
			t.logger.WithFields(logging.Fields{
				"channel": channel,
				"error":   err.Error(),
			}).Warn("Failed to deliver Telegram notification")
		}
	}()
}

// deliver performs the synchronous Bot API call.
func (t *Telegram) deliver(channel, message string) error {
	text := fmt.Sprintf("<b>[%s]</b>\n\n%s", strings.ToUpper(channel), message)
	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post("/sendMessage")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("telegram API returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
