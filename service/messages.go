package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"tandem/pkg/models"
)

const (
	senderCanned = "Driver"
	senderCustom = "You"

	defaultPhotoCaption = "Photo update"
)

var cannedReplies = []string{
	"On my way! 🚗",
	"Running 5 mins late ⏰",
	"All children safe! ✅",
	"Arrived at school 🏫",
}

func CannedReplies() []string {
	return append([]string(nil), cannedReplies...)
}

func seedMessages() []models.Message {
	return []models.Message{
		{
			ID:        uuid.NewString(),
			Sender:    "Sarah (Emma's Mum)",
			Body:      "Thanks for organizing the school run today! 🙏",
			Timestamp: "8:10 AM",
			Type:      models.MessageReceived,
		},
		{
			ID:        uuid.NewString(),
			Sender:    "Driver Updates",
			Body:      "Good morning! Starting the school run now 🚗",
			Timestamp: "8:12 AM",
			Type:      models.MessageSystem,
		},
	}
}

func (a *App) sender(fallback string) string {
	if name := a.state.User.DisplayName(); name != "" {
		return name
	}
	return fallback
}

func (a *App) appendMessage(sender, body, photo string) models.Message {
	m := models.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Body:      body,
		Photo:     photo,
		Timestamp: a.now().Format("3:04 PM"),
		Type:      models.MessageSent,
	}
	a.state.Messages = append(a.state.Messages, m)
	return m
}

// SendCannedMessage posts one of the fixed status updates to the parents' feed.
func (a *App) SendCannedMessage(ctx context.Context, text string) models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendCanned(ctx, text)
}

func (a *App) sendCanned(ctx context.Context, text string) models.Message {
	m := a.appendMessage(a.sender(senderCanned), text, "")
	a.notifier.Notify(ctx, "✅ Update Sent", "Parents notified: "+text)
	return m
}

// SendCustomMessage posts free text. Blank text is ignored.
func (a *App) SendCustomMessage(ctx context.Context, text string) (models.Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.appendMessage(a.sender(senderCustom), text, "")
	a.notifier.Notify(ctx, "✅ Update Sent", "Parents notified: "+text)
	return m, true
}

// SendPhotoMessage shares a photo with the feed. Only signed-in users who agreed to photo
// sharing may do so.
func (a *App) SendPhotoMessage(ctx context.Context, photo, caption string) (models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.User == nil {
		a.setError(msgSignInToShare)
		return models.Message{}, ErrNotAuthenticated
	}
	if !a.state.User.PhotoConsent {
		a.setError(msgPhotoConsent)
		return models.Message{}, ErrPhotoConsent
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		caption = defaultPhotoCaption
	}
	m := a.appendMessage(a.sender(senderCustom), caption, photo)
	a.notifier.Notify(ctx, "📸 Photo Sent", caption)
	return m, nil
}
