package service

import (
	"context"
	"sync"

	"tandem/pkg/models"
)

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

type AuthListener func(ctx context.Context, event AuthEvent, session *models.Session)

type listenerEntry struct {
	id int
	fn AuthListener
}

// SessionProvider owns the auth session of one App and tells subscribers when it changes.
// It is also the storage.TokenSource the remote variant authorises requests with.
type SessionProvider struct {
	mu        sync.RWMutex
	session   *models.Session
	listeners []listenerEntry
	nextID    int
}

func NewSessionProvider() *SessionProvider {
	return &SessionProvider{}
}

func (p *SessionProvider) Session() *models.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

func (p *SessionProvider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return ""
	}
	return p.session.AccessToken
}

// Set replaces the current session. Listeners get SIGNED_IN, or TOKEN_REFRESHED when the
// session belongs to the user that was already signed in.
func (p *SessionProvider) Set(ctx context.Context, s *models.Session) {
	if s == nil {
		p.Clear(ctx)
		return
	}

	p.mu.Lock()
	prev := p.session
	p.session = s
	listeners := p.snapshot()
	p.mu.Unlock()

	event := EventSignedIn
	if prev != nil && prev.User != nil && s.User != nil && prev.User.ID == s.User.ID {
		event = EventTokenRefreshed
	}
	for _, l := range listeners {
		l.fn(ctx, event, s)
	}
}

// Clear drops the session. Listeners get SIGNED_OUT only if there was one.
func (p *SessionProvider) Clear(ctx context.Context) {
	p.mu.Lock()
	prev := p.session
	p.session = nil
	listeners := p.snapshot()
	p.mu.Unlock()

	if prev == nil {
		return
	}
	for _, l := range listeners {
		l.fn(ctx, EventSignedOut, nil)
	}
}

// Subscribe registers fn for every later session change and returns a func that removes it.
func (p *SessionProvider) Subscribe(fn AuthListener) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, l := range p.listeners {
				if l.id == id {
					p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (p *SessionProvider) snapshot() []listenerEntry {
	out := make([]listenerEntry, len(p.listeners))
	copy(out, p.listeners)
	return out
}
