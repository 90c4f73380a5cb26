package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/gallerybot/core/config"

	tele "gopkg.in/telebot.v4"
)

// DefaultLongPollTimeout applies when the config leaves the timeout unset.
const DefaultLongPollTimeout = 10 * time.Second

// LongPollTimeout is the getUpdates timeout configured in tc.
func LongPollTimeout(tc coreconfig.TelegramConfig) time.Duration {
	if tc.LongPollTimeoutSeconds <= 0 {
		return DefaultLongPollTimeout
	}
	return time.Duration(tc.LongPollTimeoutSeconds) * time.Second
}

// NewPoller picks the update source: a webhook listener when run_mode is
// webhook, long polling otherwise.
func NewPoller(tc coreconfig.TelegramConfig, wc coreconfig.WebhookConfig) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(tc.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(wc.Listen, strconv.Itoa(wc.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: wc.URL},
		}
	}
	return &tele.LongPoller{Timeout: LongPollTimeout(tc)}
}
