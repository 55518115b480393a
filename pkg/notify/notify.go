package notify

import (
	"context"

	"tandem/pkg/logger"
	"tandem/pkg/models"
)

// Notifier raises a short local notification on the user's device.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// Registration is what the school needs to verify a new parent by hand.
type Registration struct {
	UserID       string
	Name         string
	Email        string
	Postcode     string
	Children     []models.Child
	PhotoConsent bool
	School       string
}

// RegistrationNotifier tells the school about a new sign-up. Delivery is best effort.
type RegistrationNotifier interface {
	NotifyRegistration(ctx context.Context, reg Registration) error
}

type LogNotifier struct {
	log logger.ILogger
}

func NewLogNotifier(log logger.ILogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, title, body string) {
	n.log.Info("notification", logger.String("title", title), logger.String("body", body))
}

type LogRegistrationNotifier struct {
	log logger.ILogger
}

func NewLogRegistrationNotifier(log logger.ILogger) *LogRegistrationNotifier {
	return &LogRegistrationNotifier{log: log}
}

func (n *LogRegistrationNotifier) NotifyRegistration(_ context.Context, reg Registration) error {
	n.log.Info("new registration awaiting verification",
		logger.String("user_id", reg.UserID),
		logger.String("email", reg.Email),
		logger.String("postcode", reg.Postcode),
		logger.Int("children", len(reg.Children)),
		logger.Bool("photo_consent", reg.PhotoConsent),
	)
	return nil
}
