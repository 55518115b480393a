package service

import (
	"context"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage"
	"tandem/storage/cache"
)

// Bootstrap works out who is signed in on this device and loads what they can see. It never
// fails: backend trouble degrades to an anonymous view with cached or empty rides.
func (a *App) Bootstrap(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bootstrap(ctx)
}

// EnsureBootstrapped runs Bootstrap the first time it is called.
func (a *App) EnsureBootstrapped(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.booted {
		a.bootstrap(ctx)
	}
}

func (a *App) bootstrap(ctx context.Context) {
	a.booted = true
	a.state.Loading = true
	defer func() { a.state.Loading = false }()

	session := a.restoreSession(ctx)
	if session == nil {
		a.state.User = nil
		a.loadRides(ctx)
		return
	}

	authUser, err := a.auth.GetUser(ctx, session.AccessToken)
	if err != nil {
		a.log.Warning("stored session rejected, continuing anonymously", logger.String("device", a.device), logger.Error(err))
		a.dropSession(ctx)
		a.state.User = nil
		a.loadRides(ctx)
		return
	}
	if session.User == nil || session.User.ID != authUser.ID {
		session.User = authUser
	}

	a.startSession(ctx, session)
	a.loadUserData(ctx, authUser)
}

// restoreSession returns the live session, refreshing it once when the access token expired.
func (a *App) restoreSession(ctx context.Context) *models.Session {
	s := a.sessions.Session()
	if s == nil {
		var cached models.Session
		ok, err := a.cache.Get(ctx, a.key(cache.KeySession), &cached)
		if err != nil {
			a.log.Warning("failed to read cached session", logger.Error(err))
		}
		if !ok || cached.AccessToken == "" {
			return nil
		}
		s = &cached
	}

	if !s.Expired(a.now()) {
		return s
	}

	refreshed, err := a.auth.RefreshSession(ctx, s.RefreshToken)
	if err != nil {
		a.log.Warning("session refresh failed", logger.String("device", a.device), logger.Error(err))
		a.dropSession(ctx)
		return nil
	}
	if refreshed.User == nil {
		refreshed.User = s.User
	}
	return refreshed
}

func (a *App) startSession(ctx context.Context, s *models.Session) {
	a.sessions.Set(ctx, s)
	if err := a.cache.Set(ctx, a.key(cache.KeySession), s); err != nil {
		a.log.Warning("failed to cache session", logger.Error(err))
	}
}

func (a *App) dropSession(ctx context.Context) {
	a.sessions.Clear(ctx)
	if err := a.cache.Delete(ctx, a.key(cache.KeySession), a.key(cache.KeyUser)); err != nil {
		a.log.Warning("failed to clear cached session", logger.Error(err))
	}
}

// loadUserData merges the profile into the user, then loads rides. A profile failure is
// reported inline and does not stop the rides from loading.
func (a *App) loadUserData(ctx context.Context, authUser *models.AuthUser) {
	profile, err := a.stg.Profile().Get(ctx, authUser.ID)
	if err != nil {
		a.log.Error("failed to load profile", logger.String("user_id", authUser.ID), logger.Error(err))
		a.setError(msgProfileFailed)
	}

	user := models.NewUser(authUser, profile)
	if user.School == "" {
		user.School = a.opts.School
	}
	a.state.User = user
	if err := a.cache.Set(ctx, a.key(cache.KeyUser), user); err != nil {
		a.log.Warning("failed to cache user", logger.Error(err))
	}

	a.loadRides(ctx)
	if len(a.state.Messages) == 0 {
		a.state.Messages = seedMessages()
	}
}

func (a *App) loadRides(ctx context.Context) {
	res := storage.ListRides(ctx, a.stg.Ride(), a.cache, a.key(cache.KeyRides), a.log)
	a.state.Rides = res.Rides
	a.state.RidesSource = res.Source
	if a.state.User != nil {
		a.state.MyRides = models.PartitionByDriver(res.Rides, a.state.User.ID)
	} else {
		a.state.MyRides = make([]*models.Ride, 0)
	}
}

// RefreshRides reloads the ride listing and reports where it came from.
func (a *App) RefreshRides(ctx context.Context) storage.Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = true
	defer func() { a.state.Loading = false }()

	a.loadRides(ctx)
	return a.state.RidesSource
}
