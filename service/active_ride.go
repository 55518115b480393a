package service

import (
	"context"

	"tandem/pkg/models"
)

type QuickActionKey string

const (
	QuickPickedUp    QuickActionKey = "picked_up"
	QuickAtSchool    QuickActionKey = "at_school"
	QuickRunningLate QuickActionKey = "running_late"
	QuickAllSafe     QuickActionKey = "all_safe"
)

type QuickAction struct {
	Key  QuickActionKey
	Text string
}

var quickActions = []QuickAction{
	{Key: QuickPickedUp, Text: "Child safely picked up ✅"},
	{Key: QuickAtSchool, Text: "All children arrived safely at school 🏫"},
	{Key: QuickRunningLate, Text: "Running 5 minutes late ⏰"},
	{Key: QuickAllSafe, Text: "All children safe and happy 😊"},
}

// StartRide marks one of the known rides as in progress on this device. The stored ride is
// not touched.
func (a *App) StartRide(ctx context.Context, rideID string) (*models.Ride, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ride := a.findRide(rideID)
	if ride == nil {
		return nil, ErrRideNotFound
	}
	a.state.ActiveRide = ride
	a.notifier.Notify(ctx, "🚗 Ride Started!", "Tap for quick actions to update parents")
	return ride, nil
}

// StopRide ends the active ride and reports whether there was one.
func (a *App) StopRide(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.ActiveRide == nil {
		return false
	}
	a.state.ActiveRide = nil
	a.notifier.Notify(ctx, "🏁 Ride Complete", "Thank you for a safe school run!")
	return true
}

// QuickActions lists the quick-action buttons, or nil while no ride is active.
func (a *App) QuickActions() []QuickAction {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.ActiveRide == nil {
		return nil
	}
	return append([]QuickAction(nil), quickActions...)
}

// QuickAction sends the canned update behind key. Without an active ride it does nothing.
func (a *App) QuickAction(ctx context.Context, key QuickActionKey) (models.Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.ActiveRide == nil {
		return models.Message{}, false
	}
	for _, qa := range quickActions {
		if qa.Key == key {
			return a.sendCanned(ctx, qa.Text), true
		}
	}
	return models.Message{}, false
}
