package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tandem/pkg/models"
)

func TestSessionProviderEvents(t *testing.T) {
	p := NewSessionProvider()
	ctx := context.Background()

	var events []AuthEvent
	unsubscribe := p.Subscribe(func(_ context.Context, e AuthEvent, _ *models.Session) {
		events = append(events, e)
	})

	p.Clear(ctx)
	assert.Empty(t, events)

	p.Set(ctx, amySession())
	assert.Equal(t, "tok", p.AccessToken())

	refreshed := amySession()
	refreshed.AccessToken = "tok2"
	p.Set(ctx, refreshed)

	p.Clear(ctx)
	assert.Equal(t, "", p.AccessToken())
	assert.Equal(t, []AuthEvent{EventSignedIn, EventTokenRefreshed, EventSignedOut}, events)

	unsubscribe()
	unsubscribe()
	p.Set(ctx, amySession())
	assert.Len(t, events, 3)
}
