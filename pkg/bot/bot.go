package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"tandem/config"
	"tandem/pkg/logger"
	"tandem/pkg/notify"
	"tandem/service"
)

// UserSession is the conversation state of one chat. The UI state itself lives in the chat's App.
type UserSession struct {
	State       string
	SignInEmail string
	SignUp      service.SignUpForm
}

type Bot struct {
	Bot      *tele.Bot
	Log      logger.ILogger
	Cfg      *config.Config
	Svc      service.IServiceManager
	Sessions map[int64]*UserSession

	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

const (
	StateIdle = "idle"

	StateSignInEmail    = "awaiting_signin_email"
	StateSignInPassword = "awaiting_signin_password"

	StateSignUpName     = "awaiting_signup_name"
	StateSignUpEmail    = "awaiting_signup_email"
	StateSignUpPassword = "awaiting_signup_password"
	StateSignUpPostcode = "awaiting_signup_postcode"
	StateSignUpChildren = "awaiting_signup_children"
	StateSignUpConsent  = "awaiting_signup_consent"

	StateOfferPostcode = "awaiting_offer_postcode"
	StateOfferTrip     = "awaiting_offer_trip"
	StateOfferDistance = "awaiting_offer_distance"
	StateOfferDate     = "awaiting_offer_date"
	StateOfferTime     = "awaiting_offer_time"
	StateOfferSeats    = "awaiting_offer_seats"
	StateOfferYears    = "awaiting_offer_years"
	StateOfferConfirm  = "awaiting_offer_confirm"

	StateMessage = "awaiting_message"
)

const (
	btnSignIn    = "🔑 Sign in"
	btnSignUp    = "📝 Sign up"
	btnFindRides = "🔍 Find rides"
	btnMyRides   = "🚗 My rides"
	btnOffer     = "➕ Offer ride"
	btnMessages  = "💬 Messages"
	btnLogout    = "🚪 Log out"
	btnCancel    = "❌ Cancel"
)

var messages = map[string]string{
	"welcome":        "👋 Welcome to <b>Tandem</b>, school-run carpooling for %s.",
	"welcome_back":   "👋 Welcome back, <b>%s</b>!",
	"menu_anon":      "Sign in to offer or request rides, or browse what is on offer.",
	"cancelled":      "❌ Cancelled.",
	"signin_email":   "📧 Your email address:",
	"signin_pass":    "🔒 Your password:",
	"signup_name":    "👤 Your full name:",
	"signup_email":   "📧 Your email address:",
	"signup_pass":    "🔒 Choose a password (at least 6 characters):",
	"signup_post":    "📍 Your postcode (send <code>-</code> to skip):",
	"signup_kids":    "👧 Your children and their year groups, for example:\n<code>Leo Y2, Mia Reception</code>",
	"signup_consent": "📸 May other parents share photos that include your children?",
	"no_rides":       "📭 No rides on offer yet.",
	"no_my_rides":    "📭 You have not offered any rides yet.",
	"cached_rides":   "⚠️ Could not reach the server. Showing the rides saved on this device.",
	"offer_post":     "📍 Pickup postcode:",
	"offer_trip":     "🚸 Trip type:",
	"offer_dist":     "📏 How far will you go? (miles)",
	"offer_date":     "📅 Date (YYYY-MM-DD):",
	"offer_time":     "⏰ Time (HH:MM), or tap to keep %s:",
	"offer_seats":    "💺 Seats available:",
	"offer_years":    "🎒 Year groups:",
	"offer_confirm":  "📋 <b>Your offer</b>\n\n%s\n\nPost it?",
	"msg_prompt":     "✍️ Type your message to the parents:",
	"feed_empty":     "💬 No messages yet.",
	"need_signin":    "🔑 Please sign in first.",
}

func New(cfg *config.Config, deps service.Deps, log logger.ILogger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.TelegramBotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error("telegram handler failed", logger.Error(err))
		},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	deps.Notifier = &chatNotifier{bot: b, log: log}
	if deps.Registrations == nil {
		if cfg.AdminChatID != 0 {
			deps.Registrations = notify.NewTelegramRegistrationNotifier(b, cfg.AdminChatID, log)
		} else {
			deps.Registrations = notify.NewLogRegistrationNotifier(log)
		}
	}

	bot := &Bot{
		Bot:      b,
		Log:      log,
		Cfg:      cfg,
		Svc:      service.New(deps),
		Sessions: make(map[int64]*UserSession),
		chats:    make(map[int64]*sync.Mutex),
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info("🤖 Tandem bot started", logger.String("username", b.Bot.Me.Username))
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
	b.Svc.Close()
}

func (b *Bot) registerHandlers() {
	b.Bot.Use(b.serializeChat)

	b.Bot.Handle("/start", b.handleStart)
	b.Bot.Handle("/cancel", b.handleCancel)
	b.Bot.Handle(btnCancel, b.handleCancel)

	b.Bot.Handle(btnSignIn, b.handleSignInStart)
	b.Bot.Handle(btnSignUp, b.handleSignUpStart)
	b.Bot.Handle(btnFindRides, b.handleFindRides)
	b.Bot.Handle(btnMyRides, b.handleMyRides)
	b.Bot.Handle(btnOffer, b.handleOfferStart)
	b.Bot.Handle(btnMessages, b.handleMessages)
	b.Bot.Handle(btnLogout, b.handleLogout)

	b.Bot.Handle(tele.OnPhoto, b.handlePhoto)
	b.Bot.Handle(tele.OnCallback, b.handleCallback)
	b.Bot.Handle(tele.OnText, b.handleText)
}

func deviceKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// app returns the chat's App and a context that routes its notifications back to the chat.
func (b *Bot) app(c tele.Context) (context.Context, *service.App) {
	ctx := withChat(context.Background(), c.Chat().ID)
	return ctx, b.Svc.App(ctx, deviceKey(c.Chat().ID))
}

// serializeChat runs the updates of one chat one after another. Chats still run in parallel.
func (b *Bot) serializeChat(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return next(c)
		}
		lock := b.chatLock(chat.ID)
		lock.Lock()
		defer lock.Unlock()
		return next(c)
	}
}

func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chats == nil {
		b.chats = make(map[int64]*sync.Mutex)
	}
	l, ok := b.chats[chatID]
	if !ok {
		l = &sync.Mutex{}
		b.chats[chatID] = l
	}
	return l
}

func (b *Bot) session(c tele.Context) *UserSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.Sessions[c.Chat().ID]
	if !ok {
		s = &UserSession{State: StateIdle}
		b.Sessions[c.Chat().ID] = s
	}
	return s
}

func (b *Bot) resetSession(c tele.Context) *UserSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &UserSession{State: StateIdle}
	b.Sessions[c.Chat().ID] = s
	return s
}

func (b *Bot) handleStart(c tele.Context) error {
	b.resetSession(c)
	_, app := b.app(c)
	return b.showMenu(c, app)
}

func (b *Bot) handleCancel(c tele.Context) error {
	b.resetSession(c)
	_, app := b.app(c)
	app.UpdateOffer(func(f *service.RideForm) { *f = service.DefaultRideForm() })
	c.Send(messages["cancelled"])
	return b.showMenu(c, app)
}

func (b *Bot) showMenu(c tele.Context, app *service.App) error {
	b.flush(c, app)
	s := app.Snapshot()
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}

	if s.User == nil {
		menu.Reply(
			menu.Row(menu.Text(btnSignIn), menu.Text(btnSignUp)),
			menu.Row(menu.Text(btnFindRides)),
		)
		txt := fmt.Sprintf(messages["welcome"], b.Cfg.SchoolName) + "\n\n" + messages["menu_anon"]
		return c.Send(txt, menu, tele.ModeHTML)
	}

	menu.Reply(
		menu.Row(menu.Text(btnFindRides), menu.Text(btnMyRides)),
		menu.Row(menu.Text(btnOffer), menu.Text(btnMessages)),
		menu.Row(menu.Text(btnLogout)),
	)
	return c.Send(fmt.Sprintf(messages["welcome_back"], escape(s.User.DisplayName())), menu, tele.ModeHTML)
}

// flush shows the App's pending inline error or notice once.
func (b *Bot) flush(c tele.Context, app *service.App) {
	s := app.Snapshot()
	switch {
	case s.Error != "":
		c.Send("⚠️ " + s.Error)
	case s.Notice != "":
		c.Send("✅ " + s.Notice)
	default:
		return
	}
	app.ClearFeedback()
}

func (b *Bot) requireUser(c tele.Context, app *service.App) bool {
	if app.Snapshot().User != nil {
		return true
	}
	c.Send(messages["need_signin"])
	return false
}

func (b *Bot) handleText(c tele.Context) error {
	session := b.session(c)
	if session.State == StateIdle {
		return nil
	}
	text := strings.TrimSpace(c.Text())

	switch session.State {
	case StateSignInEmail, StateSignInPassword,
		StateSignUpName, StateSignUpEmail, StateSignUpPassword, StateSignUpPostcode, StateSignUpChildren:
		return b.handleAuthText(c, session, text)
	case StateOfferPostcode, StateOfferDate, StateOfferTime:
		return b.handleOfferText(c, session, text)
	case StateMessage:
		return b.handleMessageText(c, session, text)
	}
	return nil
}

func (b *Bot) handleCallback(c tele.Context) error {
	unique, payload := parseCallback(c.Callback().Data)
	session := b.session(c)

	switch unique {
	case "consent":
		return b.handleConsent(c, session, payload == "yes")
	case "trip", "dist", "seats", "years", "time", "offer":
		return b.handleOfferCallback(c, session, unique, payload)
	case "req":
		return b.handleRequestRide(c, payload)
	case "start":
		return b.handleStartRide(c, payload)
	case "stop":
		return b.handleStopRide(c)
	case "qa":
		return b.handleQuickAction(c, payload)
	case "reply":
		return b.handleCannedReply(c, payload)
	case "write":
		session.State = StateMessage
		c.Respond()
		return c.Send(messages["msg_prompt"])
	}
	return c.Respond()
}

// parseCallback splits telebot callback data "\f<unique>|<payload>" into its parts.
func parseCallback(data string) (unique, payload string) {
	data = strings.TrimPrefix(data, "\f")
	unique, payload, _ = strings.Cut(data, "|")
	return unique, payload
}

func (b *Bot) handleLogout(c tele.Context) error {
	b.resetSession(c)
	ctx, app := b.app(c)
	app.SignOut(ctx)
	return b.showMenu(c, app)
}
