package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"tandem/pkg/backend"
	"tandem/pkg/models"
	"tandem/pkg/notify"
	"tandem/storage"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*backend.SignUpResult, error) {
	args := m.Called(ctx, email, password, metadata)
	res, _ := args.Get(0).(*backend.SignUpResult)
	return res, args.Error(1)
}

func (m *mockAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockAuth) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *mockAuth) SignOut(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuth) GetUser(ctx context.Context, token string) (*models.AuthUser, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*models.AuthUser)
	return u, args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	args := m.Called(ctx, profile)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

type mockRides struct {
	mock.Mock
}

func (m *mockRides) GetAll(ctx context.Context) ([]*models.Ride, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]*models.Ride)
	return r, args.Error(1)
}

func (m *mockRides) GetByDriver(ctx context.Context, driverID string) ([]*models.Ride, error) {
	args := m.Called(ctx, driverID)
	r, _ := args.Get(0).([]*models.Ride)
	return r, args.Error(1)
}

func (m *mockRides) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	args := m.Called(ctx, ride)
	r, _ := args.Get(0).(*models.Ride)
	return r, args.Error(1)
}

type mockRegistrations struct {
	mock.Mock
}

func (m *mockRegistrations) NotifyRegistration(ctx context.Context, reg notify.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

type fakeStorage struct {
	profiles *mockProfiles
	rides    *mockRides
}

func (s *fakeStorage) Profile() storage.IProfileStorage { return s.profiles }
func (s *fakeStorage) Ride() storage.IRideStorage       { return s.rides }
func (s *fakeStorage) Close()                           {}

type notification struct {
	Title string
	Body  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Title: title, Body: body})
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Title)
	}
	return out
}
