package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tandem/pkg/backend"
	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/pkg/notify"
	"tandem/storage"
	"tandem/storage/cache"
)

const device = "tg:42"

var fixedNow = time.Date(2026, 10, 17, 15, 4, 0, 0, time.UTC)

type fixture struct {
	app      *App
	auth     *mockAuth
	profiles *mockProfiles
	rides    *mockRides
	regs     *mockRegistrations
	notes    *recordingNotifier
	cache    cache.Cache
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	c, err := cache.NewFile(t.TempDir(), logger.Nop())
	require.NoError(t, err)

	f := &fixture{
		auth:     &mockAuth{},
		profiles: &mockProfiles{},
		rides:    &mockRides{},
		regs:     &mockRegistrations{},
		notes:    &recordingNotifier{},
		cache:    c,
	}
	o := Options{School: "Maple Walk Prep", RequireChildren: true}
	for _, fn := range opts {
		fn(&o)
	}
	f.app = NewApp(device, Deps{
		Auth:          f.auth,
		Storage:       storage.Shared(&fakeStorage{profiles: f.profiles, rides: f.rides}),
		Cache:         c,
		Notifier:      f.notes,
		Registrations: f.regs,
		Log:           logger.Nop(),
		Options:       o,
		Now:           func() time.Time { return fixedNow },
	})
	t.Cleanup(f.app.Close)
	return f
}

func amy() *models.AuthUser {
	return &models.AuthUser{ID: "u1", Email: "amy@example.com", Metadata: map[string]interface{}{"full_name": "Amy"}}
}

func amyProfile() *models.Profile {
	return &models.Profile{
		ID:       "u1",
		Email:    "amy@example.com",
		Name:     "Amy",
		Postcode: "NW1 1AA",
		Children: []models.Child{{Name: "Leo", YearGroup: models.YearY2}},
		School:   "Maple Walk Prep",
	}
}

func amySession() *models.Session {
	return &models.Session{AccessToken: "tok", RefreshToken: "ref", ExpiresAt: fixedNow.Add(time.Hour), User: amy()}
}

func someRides() []*models.Ride {
	return []*models.Ride{
		{ID: "9", DriverID: "u2", DriverName: "Sarah Johnson"},
		{ID: "8", DriverID: "u1", DriverName: "Amy"},
		{ID: "7", DriverID: "u3", DriverName: "Mike Parker"},
	}
}

func amyForm() SignUpForm {
	return SignUpForm{
		Name:     "Amy",
		Email:    "amy@example.com",
		Password: "secret1",
		Postcode: "NW1 1AA",
		Children: []models.Child{{Name: "Leo", YearGroup: "Y2"}},
	}
}

func isAmyProfile(p *models.Profile) bool {
	return p.ID == "u1" && p.Name == "Amy" && p.Postcode == "NW1 1AA" &&
		len(p.Children) == 1 && p.Children[0] == models.Child{Name: "Leo", YearGroup: "Y2"} &&
		p.School == "Maple Walk Prep"
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.auth.On("SignInWithPassword", mock.Anything, "amy@example.com", "secret1").Return(amySession(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil)
	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()
	require.NoError(t, f.app.SignIn(context.Background(), "amy@example.com", "secret1"))
}

func TestSignUpRejectsMissingChildLocally(t *testing.T) {
	f := newFixture(t)
	form := amyForm()
	form.Children = []models.Child{{Name: "  ", YearGroup: "Y2"}, {Name: "Mia", YearGroup: "Y9"}}

	err := f.app.SignUp(context.Background(), form)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Please add at least one child with name and year group.", f.app.Snapshot().Error)
	f.auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSignUpRejectsMissingPostcodeWhenRequired(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequirePostcode = true; o.RequireChildren = false })
	form := amyForm()
	form.Postcode = " "

	err := f.app.SignUp(context.Background(), form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Postcode", verr.Field)
	assert.Equal(t, "Please enter your postcode.", f.app.Snapshot().Error)
	f.auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	form := amyForm()
	form.Password = "abc"

	err := f.app.SignUp(context.Background(), form)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Password should be at least 6 characters.", f.app.Snapshot().Error)
	f.auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignUpConfirmedUpsertsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.On("SignUp", mock.Anything, "amy@example.com", "secret1", map[string]interface{}{
		"full_name":     "Amy",
		"postcode":      "NW1 1AA",
		"children":      []models.Child{{Name: "Leo", YearGroup: "Y2"}},
		"photo_consent": false,
		"school":        "Maple Walk Prep",
	}).
		Return(&backend.SignUpResult{User: amy(), Session: amySession()}, nil).Once()
	f.regs.On("NotifyRegistration", mock.Anything, mock.MatchedBy(func(r notify.Registration) bool {
		return r.Email == "amy@example.com" && r.Postcode == "NW1 1AA" && len(r.Children) == 1
	})).Return(nil).Once()
	f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(isAmyProfile)).Return(amyProfile(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil)
	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()

	require.NoError(t, f.app.SignUp(ctx, amyForm()))

	s := f.app.Snapshot()
	assert.Equal(t, "Account created for Amy!", s.Notice)
	assert.Empty(t, s.Error)
	require.NotNil(t, s.User)
	assert.Equal(t, "NW1 1AA", s.User.Postcode)
	assert.Equal(t, "tok", f.app.Sessions().AccessToken())
	f.auth.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
	f.regs.AssertExpectations(t)
}

func TestSignUpPendingDefersProfileUntilSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.On("SignUp", mock.Anything, "amy@example.com", "secret1", mock.Anything).
		Return(&backend.SignUpResult{User: amy()}, nil).Once()
	f.regs.On("NotifyRegistration", mock.Anything, mock.Anything).Return(errors.New("mail relay down")).Once()

	require.NoError(t, f.app.SignUp(ctx, amyForm()))

	s := f.app.Snapshot()
	assert.Equal(t, "Account created for Amy! Please check your email to verify your account.", s.Notice)
	assert.Nil(t, s.User)
	f.profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

	f.auth.On("SignInWithPassword", mock.Anything, "amy@example.com", "secret1").Return(amySession(), nil).Once()
	f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(isAmyProfile)).Return(amyProfile(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil).Once()
	f.rides.On("GetAll", mock.Anything).Return([]*models.Ride{}, nil).Once()

	require.NoError(t, f.app.SignIn(ctx, "amy@example.com", "secret1"))
	assert.Equal(t, "Successfully logged in!", f.app.Snapshot().Notice)
	f.profiles.AssertExpectations(t)
}

func TestSignUpKeepsProfilePendingWhenUpsertFails(t *testing.T) {
	f := newFixture(t)

	f.auth.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&backend.SignUpResult{User: amy(), Session: amySession()}, nil).Once()
	f.regs.On("NotifyRegistration", mock.Anything, mock.Anything).Return(nil)
	f.profiles.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("rls violation")).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(nil, nil)
	f.rides.On("GetAll", mock.Anything).Return([]*models.Ride{}, nil)

	require.NoError(t, f.app.SignUp(context.Background(), amyForm()))
	assert.Equal(t, msgProfileNotSaved, f.app.Snapshot().Error)
	assert.True(t, f.app.hasPending("u1"))
}

func TestPendingSignUpProfileSavedFromAnotherChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var metadata map[string]interface{}
	f.auth.On("SignUp", mock.Anything, "amy@example.com", "secret1", mock.Anything).
		Run(func(args mock.Arguments) { metadata = args.Get(3).(map[string]interface{}) }).
		Return(&backend.SignUpResult{User: amy()}, nil).Once()
	f.regs.On("NotifyRegistration", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, f.app.SignUp(ctx, amyForm()))

	// The backend hands the metadata back as decoded JSON.
	data, err := json.Marshal(metadata)
	require.NoError(t, err)
	session := amySession()
	session.User.Metadata = nil
	require.NoError(t, json.Unmarshal(data, &session.User.Metadata))

	other := NewApp("tg:99", Deps{
		Auth:    f.auth,
		Storage: storage.Shared(&fakeStorage{profiles: f.profiles, rides: f.rides}),
		Cache:   f.cache,
		Log:     logger.Nop(),
		Options: Options{School: "Maple Walk Prep", RequireChildren: true},
		Now:     func() time.Time { return fixedNow },
	})
	t.Cleanup(other.Close)

	f.auth.On("SignInWithPassword", mock.Anything, "amy@example.com", "secret1").Return(session, nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(nil, nil).Once()
	f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(isAmyProfile)).Return(amyProfile(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil).Once()
	f.rides.On("GetAll", mock.Anything).Return([]*models.Ride{}, nil).Once()

	require.NoError(t, other.SignIn(ctx, "amy@example.com", "secret1"))
	f.profiles.AssertExpectations(t)
	require.NotNil(t, other.Snapshot().User)
	assert.Equal(t, "NW1 1AA", other.Snapshot().User.Postcode)
}

func TestSignUpWithoutUserFails(t *testing.T) {
	f := newFixture(t)

	f.auth.On("SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&backend.SignUpResult{Session: &models.Session{AccessToken: "tok"}}, nil).Once()

	err := f.app.SignUp(context.Background(), amyForm())
	assert.ErrorIs(t, err, ErrSignUpFailed)

	s := f.app.Snapshot()
	assert.Equal(t, "Sign up failed. Please try again.", s.Error)
	assert.Nil(t, s.User)
	assert.Nil(t, f.app.Sessions().Session())
	f.regs.AssertNotCalled(t, "NotifyRegistration", mock.Anything, mock.Anything)
	f.profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSignInErrorShowsBackendTextAndKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()
	f.app.Bootstrap(ctx)
	before := f.app.Snapshot()

	f.auth.On("SignInWithPassword", mock.Anything, "amy@example.com", "wrong").
		Return(nil, &backend.Error{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}).Once()

	err := f.app.SignIn(ctx, "amy@example.com", "wrong")
	require.Error(t, err)

	after := f.app.Snapshot()
	assert.Equal(t, "Invalid login credentials", after.Error)
	assert.Nil(t, after.User)
	assert.Equal(t, before.Rides, after.Rides)
	assert.Empty(t, after.MyRides)
	assert.Empty(t, after.Messages)
	assert.Nil(t, f.app.Sessions().Session())
}

func TestSignInLoadsProfileRidesAndMessages(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	s := f.app.Snapshot()
	require.NotNil(t, s.User)
	assert.Equal(t, "Amy", s.User.Name)
	assert.Len(t, s.Rides, 3)
	require.Len(t, s.MyRides, 1)
	assert.Equal(t, models.FlexString("8"), s.MyRides[0].ID)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, models.MessageReceived, s.Messages[0].Type)
	assert.Equal(t, "8:10 AM", s.Messages[0].Timestamp)
	assert.Equal(t, models.MessageSystem, s.Messages[1].Type)
	assert.Equal(t, storage.SourceBackend, s.RidesSource)
	assert.False(t, s.Loading)

	var cached models.Session
	ok, err := f.cache.Get(context.Background(), cache.DeviceKey(device, cache.KeySession), &cached)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", cached.AccessToken)
}

func TestSignOutClearsStateAndDeviceCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	f.auth.On("SignOut", mock.Anything, "tok").Return(nil).Once()

	f.app.SignOut(ctx)

	s := f.app.Snapshot()
	assert.Nil(t, s.User)
	assert.Empty(t, s.Rides)
	assert.Empty(t, s.MyRides)
	assert.Empty(t, s.Messages)
	assert.Nil(t, s.ActiveRide)
	assert.Nil(t, f.app.Sessions().Session())

	for _, key := range []string{cache.KeySession, cache.KeyUser, cache.KeyRides} {
		var v interface{}
		ok, err := f.cache.Get(ctx, cache.DeviceKey(device, key), &v)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	f.auth.AssertExpectations(t)
}

func TestSignOutSurvivesBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.auth.On("SignOut", mock.Anything, "tok").Return(errors.New("offline")).Once()

	f.app.SignOut(context.Background())
	assert.Nil(t, f.app.Snapshot().User)
	assert.Nil(t, f.app.Sessions().Session())
}

func TestBootstrapRestoresCachedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.DeviceKey(device, cache.KeySession), amySession()))

	f.auth.On("GetUser", mock.Anything, "tok").Return(amy(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil)
	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()

	f.app.Bootstrap(ctx)

	s := f.app.Snapshot()
	require.NotNil(t, s.User)
	assert.Equal(t, "u1", s.User.ID)
	assert.Len(t, s.MyRides, 1)
	assert.Len(t, s.Messages, 2)
	assert.False(t, s.Loading)
}

func TestBootstrapRefreshesExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expired := amySession()
	expired.ExpiresAt = fixedNow.Add(-time.Minute)
	require.NoError(t, f.cache.Set(ctx, cache.DeviceKey(device, cache.KeySession), expired))

	fresh := &models.Session{AccessToken: "tok2", RefreshToken: "ref2", ExpiresAt: fixedNow.Add(time.Hour)}
	f.auth.On("RefreshSession", mock.Anything, "ref").Return(fresh, nil).Once()
	f.auth.On("GetUser", mock.Anything, "tok2").Return(amy(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(amyProfile(), nil)
	f.rides.On("GetAll", mock.Anything).Return([]*models.Ride{}, nil).Once()

	f.app.Bootstrap(ctx)

	assert.Equal(t, "tok2", f.app.Sessions().AccessToken())
	assert.NotNil(t, f.app.Snapshot().User)
	f.auth.AssertExpectations(t)
}

func TestBootstrapProfileFailureStillLoadsRides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.DeviceKey(device, cache.KeySession), amySession()))

	f.auth.On("GetUser", mock.Anything, "tok").Return(amy(), nil).Once()
	f.profiles.On("Get", mock.Anything, "u1").Return(nil, errors.New("timeout"))
	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()

	f.app.Bootstrap(ctx)

	s := f.app.Snapshot()
	assert.Equal(t, "Login successful but could not fetch profile.", s.Error)
	require.NotNil(t, s.User)
	assert.Equal(t, "Amy", s.User.Name)
	assert.Len(t, s.Rides, 3)
	assert.False(t, s.Loading)
}

func TestBootstrapAnonymousFallsBackToCachedRides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.DeviceKey(device, cache.KeyRides), someRides()))

	f.rides.On("GetAll", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	f.app.Bootstrap(ctx)

	s := f.app.Snapshot()
	assert.Nil(t, s.User)
	assert.Equal(t, storage.SourceCache, s.RidesSource)
	assert.Len(t, s.Rides, 3)
	assert.Empty(t, s.MyRides)
	assert.Empty(t, s.Error)
}

func TestBootstrapRidesFailureLeavesEmptyList(t *testing.T) {
	f := newFixture(t)
	f.rides.On("GetAll", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	f.app.Bootstrap(context.Background())

	s := f.app.Snapshot()
	assert.Equal(t, storage.SourceEmpty, s.RidesSource)
	assert.NotNil(t, s.Rides)
	assert.Empty(t, s.Rides)
	assert.False(t, s.Loading)
}

func TestBootstrapRejectedSessionContinuesAnonymously(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, cache.DeviceKey(device, cache.KeySession), amySession()))

	f.auth.On("GetUser", mock.Anything, "tok").Return(nil, &backend.Error{Status: 401, Message: "invalid JWT"}).Once()
	f.rides.On("GetAll", mock.Anything).Return(someRides(), nil).Once()

	f.app.Bootstrap(ctx)

	assert.Nil(t, f.app.Snapshot().User)
	var v interface{}
	ok, err := f.cache.Get(ctx, cache.DeviceKey(device, cache.KeySession), &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureBootstrappedRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.rides.On("GetAll", mock.Anything).Return([]*models.Ride{}, nil).Once()

	f.app.EnsureBootstrapped(context.Background())
	f.app.EnsureBootstrapped(context.Background())
	f.rides.AssertNumberOfCalls(t, "GetAll", 1)
}

func TestObserverCreatesMinimalProfile(t *testing.T) {
	f := newFixture(t)
	f.profiles.On("Get", mock.Anything, "u1").Return(nil, nil).Once()
	f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.Profile) bool {
		return p.ID == "u1" && p.Name == "Amy" && p.Email == "amy@example.com"
	})).Return(amyProfile(), nil).Once()

	f.app.Sessions().Set(context.Background(), amySession())
	f.profiles.AssertExpectations(t)
}
