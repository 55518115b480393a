package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v3"

	"tandem/pkg/logger"
)

const registrationSubject = "New Tandem user registration - verification required"

// TelegramRegistrationNotifier posts each new registration to the school's admin chat.
type TelegramRegistrationNotifier struct {
	bot    *tele.Bot
	chatID int64
	log    logger.ILogger
}

func NewTelegramRegistrationNotifier(bot *tele.Bot, chatID int64, log logger.ILogger) *TelegramRegistrationNotifier {
	return &TelegramRegistrationNotifier{bot: bot, chatID: chatID, log: log}
}

func (n *TelegramRegistrationNotifier) NotifyRegistration(_ context.Context, reg Registration) error {
	_, err := n.bot.Send(&tele.Chat{ID: n.chatID}, FormatRegistration(reg), tele.ModeHTML)
	if err != nil {
		n.log.Warning("failed to send registration notification", logger.Int64("chat_id", n.chatID), logger.Error(err))
		return errors.Wrap(err, "send registration notification")
	}
	return nil
}

// FormatRegistration renders reg as a Telegram HTML message.
func FormatRegistration(reg Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s</b>\n\n", registrationSubject)
	fmt.Fprintf(&b, "👤 <b>Name:</b> %s\n", html.EscapeString(reg.Name))
	fmt.Fprintf(&b, "📧 <b>Email:</b> %s\n", html.EscapeString(reg.Email))
	if reg.Postcode != "" {
		fmt.Fprintf(&b, "📍 <b>Postcode:</b> %s\n", html.EscapeString(reg.Postcode))
	}
	if reg.School != "" {
		fmt.Fprintf(&b, "🏫 <b>School:</b> %s\n", html.EscapeString(reg.School))
	}
	if len(reg.Children) > 0 {
		b.WriteString("👧 <b>Children:</b>\n")
		for _, c := range reg.Children {
			fmt.Fprintf(&b, "  • %s (%s)\n", html.EscapeString(c.Name), html.EscapeString(c.YearGroup))
		}
	}
	consent := "No"
	if reg.PhotoConsent {
		consent = "Yes"
	}
	fmt.Fprintf(&b, "📸 <b>Photo consent:</b> %s\n", consent)
	if reg.UserID != "" {
		fmt.Fprintf(&b, "\n<code>%s</code>", html.EscapeString(reg.UserID))
	}
	return b.String()
}
