package bot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"tandem/pkg/logger"
)

type chatKey struct{}

func withChat(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatKey{}, chatID)
}

func chatFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(chatKey{}).(int64)
	return id, ok && id != 0
}

// chatNotifier delivers an App's local notifications to the chat that triggered them.
type chatNotifier struct {
	bot *tele.Bot
	log logger.ILogger
}

func (n *chatNotifier) Notify(ctx context.Context, title, body string) {
	chatID, ok := chatFrom(ctx)
	if !ok {
		n.log.Info("notification", logger.String("title", title), logger.String("body", body))
		return
	}
	txt := fmt.Sprintf("🔔 <b>%s</b>", escape(title))
	if body != "" {
		txt += "\n" + escape(body)
	}
	if _, err := n.bot.Send(&tele.Chat{ID: chatID}, txt, tele.ModeHTML, tele.Silent); err != nil {
		n.log.Warning("failed to deliver notification", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}
