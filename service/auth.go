package service

import (
	"context"
	"fmt"
	"strings"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/pkg/notify"
	"tandem/storage/cache"
)

const (
	msgSignedIn       = "Successfully logged in!"
	msgSignedOut      = "You have been logged out."
	msgNeedChildren   = "Please add at least one child with name and year group."
	msgNeedPostcode   = "Please enter your postcode."
	msgAccountCreated = "Account created for %s!"
	msgConfirmEmail   = "Account created for %s! Please check your email to verify your account."
	msgSignUpFailed   = "Sign up failed. Please try again."
)

type SignUpForm struct {
	Name         string `validate:"required"`
	Email        string `validate:"required,email"`
	Password     string `validate:"required,min=6"`
	Postcode     string
	Children     []models.Child
	PhotoConsent bool
}

var signUpMessages = fieldMessages{
	"Name":     "Please enter your name.",
	"Email":    "Please enter a valid email address.",
	"Password": "Password should be at least 6 characters.",
}

// ValidChildren keeps the entries that have a name and a known year group.
func ValidChildren(children []models.Child) []models.Child {
	out := make([]models.Child, 0, len(children))
	for _, c := range children {
		name := strings.TrimSpace(c.Name)
		if name == "" || !models.IsYearGroup(c.YearGroup) {
			continue
		}
		out = append(out, models.Child{Name: name, YearGroup: c.YearGroup})
	}
	return out
}

// validateSignUp normalises form in place and checks it without touching the backend.
func (a *App) validateSignUp(form *SignUpForm) *ValidationError {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Postcode = strings.ToUpper(strings.TrimSpace(form.Postcode))
	form.Children = ValidChildren(form.Children)

	verr := validateStruct(a.validate, form, signUpMessages)
	if verr == nil {
		verr = &ValidationError{}
	}
	if a.opts.RequireChildren && len(form.Children) == 0 {
		verr.add("Children", msgNeedChildren)
	}
	if a.opts.RequirePostcode && form.Postcode == "" {
		verr.add("Postcode", msgNeedPostcode)
	}
	if verr.Message == "" {
		return nil
	}
	return verr
}

// SignIn authenticates with email and password. On failure the backend's message becomes the
// inline error and nothing else changes.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = true
	defer func() { a.state.Loading = false }()

	session, err := a.auth.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		a.log.Warning("sign in failed", logger.String("device", a.device), logger.Error(err))
		a.setError(err.Error())
		return err
	}

	a.setNotice("")
	a.startSession(ctx, session)
	a.loadUserData(ctx, session.User)
	if a.state.Error == "" {
		a.setNotice(msgSignedIn)
	}
	return nil
}

// SignUp validates the form locally, creates the auth identity and the profile. When the
// backend wants the email confirmed first, the profile is kept pending and written once a
// session for that user appears.
func (a *App) SignUp(ctx context.Context, form SignUpForm) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if verr := a.validateSignUp(&form); verr != nil {
		a.setError(verr.Message)
		return verr
	}

	a.state.Loading = true
	defer func() { a.state.Loading = false }()

	profile := &models.Profile{
		Email:        form.Email,
		Name:         form.Name,
		Postcode:     form.Postcode,
		Children:     form.Children,
		PhotoConsent: form.PhotoConsent,
		School:       a.opts.School,
	}
	res, err := a.auth.SignUp(ctx, form.Email, form.Password, models.SignUpMetadata(profile))
	if err != nil {
		a.log.Warning("sign up failed", logger.String("device", a.device), logger.Error(err))
		a.setError(err.Error())
		return err
	}
	if res == nil || res.User == nil || res.User.ID == "" {
		a.log.Error("sign up returned no user", logger.String("device", a.device))
		a.setError(msgSignUpFailed)
		return ErrSignUpFailed
	}

	profile.ID = res.User.ID
	a.setPending(profile)
	a.notifyRegistration(ctx, profile)

	if !res.Confirmed() {
		a.setNotice(fmt.Sprintf(msgConfirmEmail, form.Name))
		return nil
	}

	a.startSession(ctx, res.Session)
	saved := !a.hasPending(profile.ID)
	a.loadUserData(ctx, res.User)
	if !saved {
		a.setError(msgProfileNotSaved)
		return nil
	}
	if a.state.Error == "" {
		a.setNotice(fmt.Sprintf(msgAccountCreated, form.Name))
	}
	return nil
}

func (a *App) notifyRegistration(ctx context.Context, p *models.Profile) {
	if a.reg == nil {
		return
	}
	err := a.reg.NotifyRegistration(ctx, notify.Registration{
		UserID:       p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Postcode:     p.Postcode,
		Children:     p.Children,
		PhotoConsent: p.PhotoConsent,
		School:       p.School,
	})
	if err != nil {
		a.log.Warning("registration notification failed", logger.String("user_id", p.ID), logger.Error(err))
	}
}

// SignOut ends the session and forgets everything the device knew about the user.
func (a *App) SignOut(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.auth.SignOut(ctx, a.sessions.AccessToken()); err != nil {
		a.log.Warning("backend sign out failed", logger.String("device", a.device), logger.Error(err))
	}
	a.sessions.Clear(ctx)

	if err := a.cache.Delete(ctx, a.key(cache.KeySession), a.key(cache.KeyUser), a.key(cache.KeyRides)); err != nil {
		a.log.Warning("failed to clear device cache", logger.Error(err))
	}

	a.state = emptyState()
	a.state.Notice = msgSignedOut
}

// onAuthEvent keeps a profile row behind every signed-in user. It runs inside the operation
// that changed the session and must not take a.mu.
func (a *App) onAuthEvent(ctx context.Context, event AuthEvent, s *models.Session) {
	if event != EventSignedIn || s == nil || s.User == nil {
		return
	}
	if err := a.ensureProfile(ctx, s.User); err != nil {
		a.log.Error("failed to ensure profile", logger.String("user_id", s.User.ID), logger.Error(err))
	}
}

func (a *App) ensureProfile(ctx context.Context, u *models.AuthUser) error {
	if p := a.takePending(u.ID); p != nil {
		if _, err := a.stg.Profile().Upsert(ctx, p); err != nil {
			a.setPending(p)
			return err
		}
		return nil
	}

	existing, err := a.stg.Profile().Get(ctx, u.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	// Signed up on another device or before a restart: the form lives on in the metadata.
	p := u.SignUpProfile()
	p.Children = ValidChildren(p.Children)
	if p.School == "" {
		p.School = a.opts.School
	}
	_, err = a.stg.Profile().Upsert(ctx, p)
	return err
}

func (a *App) setPending(p *models.Profile) {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	a.pending = p
}

func (a *App) takePending(userID string) *models.Profile {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if a.pending == nil || a.pending.ID != userID {
		return nil
	}
	p := a.pending
	a.pending = nil
	return p
}

func (a *App) hasPending(userID string) bool {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	return a.pending != nil && a.pending.ID == userID
}
