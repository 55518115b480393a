package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v3"

	"tandem/pkg/logger"
	"tandem/service"
)

const feedLimit = 15

func (b *Bot) messagesKeyboard(s service.State, actions []service.QuickAction) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var rows []tele.Row

	if s.ActiveRide != nil {
		for _, qa := range actions {
			rows = append(rows, menu.Row(menu.Data(qa.Text, "qa", string(qa.Key))))
		}
		rows = append(rows, menu.Row(menu.Data("🏁 End ride", "stop")))
	}

	replies := service.CannedReplies()
	for i := 0; i < len(replies); i += 2 {
		row := []tele.Btn{menu.Data(replies[i], "reply", strconv.Itoa(i))}
		if i+1 < len(replies) {
			row = append(row, menu.Data(replies[i+1], "reply", strconv.Itoa(i+1)))
		}
		rows = append(rows, menu.Row(row...))
	}
	rows = append(rows, menu.Row(menu.Data("✍️ Write a message", "write")))
	menu.Inline(rows...)
	return menu
}

func (b *Bot) handleMessages(c tele.Context) error {
	_, app := b.app(c)
	if !b.requireUser(c, app) {
		return nil
	}
	return b.sendFeed(c, app)
}

func (b *Bot) sendFeed(c tele.Context, app *service.App) error {
	s := app.Snapshot()
	txt := messages["feed_empty"]
	if len(s.Messages) > 0 {
		txt = formatFeed(s.Messages, feedLimit)
	}
	if s.ActiveRide != nil {
		txt = "🟢 <b>Ride in progress</b> · " + escape(s.ActiveRide.Postcode) + "\n\n" + txt
	}
	return c.Send(txt, b.messagesKeyboard(s, app.QuickActions()), tele.ModeHTML)
}

func (b *Bot) handleCannedReply(c tele.Context, payload string) error {
	replies := service.CannedReplies()
	i, err := strconv.Atoi(payload)
	if err != nil || i < 0 || i >= len(replies) {
		return c.Respond()
	}
	ctx, app := b.app(c)
	app.SendCannedMessage(ctx, replies[i])
	c.Respond(&tele.CallbackResponse{Text: "Sent"})
	return b.sendFeed(c, app)
}

func (b *Bot) handleMessageText(c tele.Context, session *UserSession, text string) error {
	session.State = StateIdle
	ctx, app := b.app(c)
	if _, ok := app.SendCustomMessage(ctx, text); !ok {
		return nil
	}
	return b.sendFeed(c, app)
}

func (b *Bot) handlePhoto(c tele.Context) error {
	ctx, app := b.app(c)
	if !b.requireUser(c, app) {
		return nil
	}
	photo := c.Message().Photo
	if _, err := app.SendPhotoMessage(ctx, photo.FileID, c.Message().Caption); err != nil {
		b.Log.Info("photo not shared", logger.String("device", app.Device()), logger.Error(err))
		b.flush(c, app)
		return nil
	}
	return b.sendFeed(c, app)
}

func (b *Bot) handleStartRide(c tele.Context, rideID string) error {
	c.Respond()
	ctx, app := b.app(c)
	if !b.requireUser(c, app) {
		return nil
	}
	if _, err := app.StartRide(ctx, rideID); err != nil {
		return c.Send("⚠️ That ride is no longer listed.")
	}
	return b.sendFeed(c, app)
}

func (b *Bot) handleStopRide(c tele.Context) error {
	c.Respond()
	ctx, app := b.app(c)
	if !app.StopRide(ctx) {
		return nil
	}
	return b.sendFeed(c, app)
}

func (b *Bot) handleQuickAction(c tele.Context, key string) error {
	ctx, app := b.app(c)
	if _, ok := app.QuickAction(ctx, service.QuickActionKey(key)); !ok {
		return c.Respond(&tele.CallbackResponse{Text: "No ride in progress"})
	}
	c.Respond(&tele.CallbackResponse{Text: "Parents notified"})
	return b.sendFeed(c, app)
}
