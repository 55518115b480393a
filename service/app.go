package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"tandem/pkg/backend"
	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/pkg/notify"
	"tandem/storage"
	"tandem/storage/cache"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPhotoConsent     = errors.New("photo sharing not allowed")
	ErrRideNotFound     = errors.New("ride not found")
	ErrSignUpFailed     = errors.New("sign up returned no user")
)

const (
	msgProfileFailed    = "Login successful but could not fetch profile."
	msgProfileNotSaved  = "Your account was created but your profile could not be saved. It will be saved when you next sign in."
	msgSignInToRequest  = "Please sign in to request a ride."
	msgSignInToOffer    = "Please sign in to offer a ride."
	msgSignInToShare    = "Please sign in to share photos."
	msgCreateRideFailed = "Failed to create ride. Please try again."
	msgPhotoConsent     = "Photo sharing is turned off for your account."
)

// Authenticator is the password auth API of the backend.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*backend.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	GetUser(ctx context.Context, token string) (*models.AuthUser, error)
}

type Options struct {
	School          string
	RequirePostcode bool
	RequireChildren bool
}

type Deps struct {
	Auth          Authenticator
	Storage       storage.Factory
	Cache         cache.Cache
	Notifier      notify.Notifier
	Registrations notify.RegistrationNotifier
	Log           logger.ILogger
	Options       Options
	// Now defaults to time.Now.
	Now func() time.Time
}

// State is everything the UI renders for one device.
type State struct {
	User        *models.User
	Rides       []*models.Ride
	MyRides     []*models.Ride
	RidesSource storage.Source
	Messages    []models.Message
	ActiveRide  *models.Ride
	Offer       RideForm
	Loading     bool
	Error       string
	Notice      string
}

// App is the state tree of one device together with the operations that change it.
// Operations are serialised; the returned State from Snapshot is a copy.
type App struct {
	device   string
	auth     Authenticator
	sessions *SessionProvider
	stg      storage.IStorage
	cache    cache.Cache
	notifier notify.Notifier
	reg      notify.RegistrationNotifier
	log      logger.ILogger
	opts     Options
	now      func() time.Time
	validate *validator.Validate

	mu     sync.Mutex
	state  State
	booted bool

	pendingMu sync.Mutex
	pending   *models.Profile

	unsubscribe func()
}

func NewApp(device string, deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}

	sessions := NewSessionProvider()
	a := &App{
		device:   device,
		auth:     deps.Auth,
		sessions: sessions,
		stg:      deps.Storage(sessions),
		cache:    deps.Cache,
		notifier: notifier,
		reg:      deps.Registrations,
		log:      log,
		opts:     deps.Options,
		now:      now,
		validate: validator.New(),
	}
	a.state = emptyState()
	a.unsubscribe = sessions.Subscribe(a.onAuthEvent)
	return a
}

func emptyState() State {
	return State{
		Rides:       make([]*models.Ride, 0),
		MyRides:     make([]*models.Ride, 0),
		Messages:    make([]models.Message, 0),
		Offer:       DefaultRideForm(),
		RidesSource: storage.SourceEmpty,
	}
}

func (a *App) Device() string {
	return a.device
}

func (a *App) Sessions() *SessionProvider {
	return a.sessions
}

func (a *App) Close() {
	a.unsubscribe()
}

func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.state
	s.Rides = append(make([]*models.Ride, 0, len(a.state.Rides)), a.state.Rides...)
	s.MyRides = append(make([]*models.Ride, 0, len(a.state.MyRides)), a.state.MyRides...)
	s.Messages = append(make([]models.Message, 0, len(a.state.Messages)), a.state.Messages...)
	if a.state.User != nil {
		u := *a.state.User
		u.Children = append([]models.Child(nil), a.state.User.Children...)
		s.User = &u
	}
	return s
}

// ClearFeedback drops the inline error and notice once the UI has shown them.
func (a *App) ClearFeedback() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Error = ""
	a.state.Notice = ""
}

func (a *App) key(name string) string {
	return cache.DeviceKey(a.device, name)
}

func (a *App) signedIn() bool {
	return a.state.User != nil && a.sessions.Session() != nil
}

func (a *App) setError(msg string) {
	a.state.Error = msg
	a.state.Notice = ""
}

func (a *App) setNotice(msg string) {
	a.state.Notice = msg
	a.state.Error = ""
}
