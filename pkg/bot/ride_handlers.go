package bot

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v3"

	"tandem/pkg/models"
	"tandem/service"
	"tandem/storage"
)

const maxRideCards = 20

func (b *Bot) handleFindRides(c tele.Context) error {
	ctx, app := b.app(c)
	if app.RefreshRides(ctx) == storage.SourceCache {
		c.Send(messages["cached_rides"])
	}
	s := app.Snapshot()
	if len(s.Rides) == 0 {
		return c.Send(messages["no_rides"])
	}
	return b.sendRideCards(c, s, s.Rides)
}

func (b *Bot) handleMyRides(c tele.Context) error {
	_, app := b.app(c)
	if !b.requireUser(c, app) {
		return nil
	}
	s := app.Snapshot()
	if len(s.MyRides) == 0 {
		return c.Send(messages["no_my_rides"])
	}
	return b.sendRideCards(c, s, s.MyRides)
}

func (b *Bot) sendRideCards(c tele.Context, s service.State, rides []*models.Ride) error {
	if len(rides) > maxRideCards {
		rides = rides[:maxRideCards]
	}
	for _, r := range rides {
		menu := &tele.ReplyMarkup{}
		switch {
		case s.User != nil && r.DriverID == s.User.ID:
			menu.Inline(menu.Row(menu.Data("▶️ Start ride", "start", r.ID.String())))
		default:
			menu.Inline(menu.Row(menu.Data("🙋 Request ride", "req", r.ID.String())))
		}
		if err := c.Send(formatRide(r), menu, tele.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleRequestRide(c tele.Context, rideID string) error {
	c.Respond()
	ctx, app := b.app(c)
	if err := app.RequestRide(ctx, rideID); err != nil && !errors.Is(err, service.ErrNotAuthenticated) {
		return c.Send("⚠️ That ride is no longer listed.")
	}
	b.flush(c, app)
	return nil
}

func (b *Bot) handleOfferStart(c tele.Context) error {
	_, app := b.app(c)
	if !b.requireUser(c, app) {
		return nil
	}
	session := b.resetSession(c)
	app.UpdateOffer(func(f *service.RideForm) { *f = service.DefaultRideForm() })
	session.State = StateOfferPostcode
	return c.Send(messages["offer_post"], cancelKeyboard())
}

func optionRows(menu *tele.ReplyMarkup, unique string, values, labels []string, perRow int) []tele.Row {
	var rows []tele.Row
	var current []tele.Btn
	for i, v := range values {
		label := v
		if labels != nil {
			label = labels[i]
		}
		current = append(current, menu.Data(label, unique, v))
		if len(current) == perRow {
			rows = append(rows, menu.Row(current...))
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, menu.Row(current...))
	}
	return rows
}

func (b *Bot) askTrip(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	values := make([]string, 0, len(models.TripTypes))
	labels := make([]string, 0, len(models.TripTypes))
	for _, t := range models.TripTypes {
		values = append(values, string(t))
		labels = append(labels, tripLabel(t))
	}
	menu.Inline(optionRows(menu, "trip", values, labels, 3)...)
	return c.Send(messages["offer_trip"], menu)
}

func (b *Bot) askDistance(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	labels := make([]string, 0, len(models.Distances))
	for _, d := range models.Distances {
		labels = append(labels, distanceLabel(d))
	}
	menu.Inline(optionRows(menu, "dist", models.Distances, labels, 3)...)
	return c.Send(messages["offer_dist"], menu)
}

func (b *Bot) askTime(c tele.Context, current string) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("⏰ "+current, "time", current)))
	return c.Send(fmt.Sprintf(messages["offer_time"], current), menu)
}

func (b *Bot) askSeats(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(optionRows(menu, "seats", models.SeatOptions, nil, 4)...)
	return c.Send(messages["offer_seats"], menu)
}

func (b *Bot) askYears(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(optionRows(menu, "years", models.YearGroupRange, nil, 3)...)
	return c.Send(messages["offer_years"], menu)
}

func formatOffer(f service.RideForm) string {
	return strings.Join([]string{
		"📍 " + escape(f.Postcode),
		"🚸 " + tripLabel(models.TripType(f.TripType)),
		"📏 " + distanceLabel(f.Distance),
		"📅 " + escape(f.Date) + " " + escape(f.Time),
		"💺 " + escape(f.Seats),
		"🎒 " + escape(f.YearGroups),
	}, "\n")
}

func (b *Bot) handleOfferText(c tele.Context, session *UserSession, text string) error {
	_, app := b.app(c)

	switch session.State {
	case StateOfferPostcode:
		app.UpdateOffer(func(f *service.RideForm) { f.Postcode = text })
		session.State = StateOfferTrip
		return b.askTrip(c)

	case StateOfferDate:
		app.UpdateOffer(func(f *service.RideForm) { f.Date = text })
		session.State = StateOfferTime
		return b.askTime(c, app.Snapshot().Offer.Time)

	case StateOfferTime:
		app.UpdateOffer(func(f *service.RideForm) { f.Time = text })
		session.State = StateOfferSeats
		return b.askSeats(c)
	}
	return nil
}

func (b *Bot) handleOfferCallback(c tele.Context, session *UserSession, unique, value string) error {
	c.Respond()
	ctx, app := b.app(c)

	switch {
	case unique == "trip" && session.State == StateOfferTrip:
		app.UpdateOffer(func(f *service.RideForm) { f.TripType = value })
		session.State = StateOfferDistance
		return b.askDistance(c)

	case unique == "dist" && session.State == StateOfferDistance:
		app.UpdateOffer(func(f *service.RideForm) { f.Distance = value })
		session.State = StateOfferDate
		return c.Send(messages["offer_date"])

	case unique == "time" && session.State == StateOfferTime:
		app.UpdateOffer(func(f *service.RideForm) { f.Time = value })
		session.State = StateOfferSeats
		return b.askSeats(c)

	case unique == "seats" && session.State == StateOfferSeats:
		app.UpdateOffer(func(f *service.RideForm) { f.Seats = value })
		session.State = StateOfferYears
		return b.askYears(c)

	case unique == "years" && session.State == StateOfferYears:
		form := app.UpdateOffer(func(f *service.RideForm) { f.YearGroups = value })
		session.State = StateOfferConfirm
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(menu.Data("✅ Post offer", "offer", "yes"), menu.Data("❌ Discard", "offer", "no")))
		return c.Send(fmt.Sprintf(messages["offer_confirm"], formatOffer(form)), menu, tele.ModeHTML)

	case unique == "offer" && session.State == StateOfferConfirm:
		b.resetSession(c)
		if value != "yes" {
			app.UpdateOffer(func(f *service.RideForm) { *f = service.DefaultRideForm() })
			c.Send(messages["cancelled"])
			return b.showMenu(c, app)
		}
		if ride, err := app.CreateRide(ctx); err == nil {
			c.Send(formatRide(ride), tele.ModeHTML)
		}
		return b.showMenu(c, app)
	}
	return nil
}
