package bot

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"clinichat/internal/lib/sl"
)

// TgBot delivers operational alerts to a Telegram admin chat. It never
// receives updates; it exists purely as a log sink.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SendAlert pushes a text message to the admin chat. Implements
// logger.Alerter.
func (t *TgBot) SendAlert(text string) error {
	if t.adminId == 0 {
		return nil
	}

	const maxAlertLen = 4000
	if len(text) > maxAlertLen {
		text = text[:maxAlertLen]
	}

	_, err := t.api.SendMessage(t.adminId, text, nil)
	if err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}

	return nil
}
