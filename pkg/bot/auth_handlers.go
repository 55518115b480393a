package bot

import (
	tele "gopkg.in/telebot.v3"

	"tandem/pkg/logger"
	"tandem/service"
)

func cancelKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(menu.Row(menu.Text(btnCancel)))
	return menu
}

func (b *Bot) handleSignInStart(c tele.Context) error {
	session := b.resetSession(c)
	session.State = StateSignInEmail
	return c.Send(messages["signin_email"], cancelKeyboard())
}

func (b *Bot) handleSignUpStart(c tele.Context) error {
	session := b.resetSession(c)
	session.State = StateSignUpName
	return c.Send(messages["signup_name"], cancelKeyboard())
}

// forgetSecret removes a message that carried a password from the chat history.
func (b *Bot) forgetSecret(c tele.Context) {
	if err := b.Bot.Delete(c.Message()); err != nil {
		b.Log.Debug("could not delete password message", logger.Error(err))
	}
}

func (b *Bot) handleAuthText(c tele.Context, session *UserSession, text string) error {
	switch session.State {
	case StateSignInEmail:
		session.SignInEmail = text
		session.State = StateSignInPassword
		return c.Send(messages["signin_pass"])

	case StateSignInPassword:
		b.forgetSecret(c)
		ctx, app := b.app(c)
		err := app.SignIn(ctx, session.SignInEmail, c.Text())
		if err != nil {
			b.flush(c, app)
			session.State = StateSignInEmail
			return c.Send(messages["signin_email"])
		}
		b.resetSession(c)
		return b.showMenu(c, app)

	case StateSignUpName:
		session.SignUp.Name = text
		session.State = StateSignUpEmail
		return c.Send(messages["signup_email"])

	case StateSignUpEmail:
		session.SignUp.Email = text
		session.State = StateSignUpPassword
		return c.Send(messages["signup_pass"])

	case StateSignUpPassword:
		b.forgetSecret(c)
		session.SignUp.Password = c.Text()
		session.State = StateSignUpPostcode
		return c.Send(messages["signup_post"], tele.ModeHTML)

	case StateSignUpPostcode:
		if text != "-" {
			session.SignUp.Postcode = text
		}
		session.State = StateSignUpChildren
		return c.Send(messages["signup_kids"], tele.ModeHTML)

	case StateSignUpChildren:
		session.SignUp.Children = parseChildren(text)
		valid := service.ValidChildren(session.SignUp.Children)
		if b.Cfg.RequireChildren && len(valid) == 0 {
			return c.Send("⚠️ Please add at least one child with name and year group.\n\n"+messages["signup_kids"], tele.ModeHTML)
		}
		session.State = StateSignUpConsent
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(menu.Data("✅ Yes", "consent", "yes"), menu.Data("🚫 No", "consent", "no")))
		summary := "👧 " + escape(formatChildren(valid)) + "\n\n" + messages["signup_consent"]
		return c.Send(summary, menu, tele.ModeHTML)
	}
	return nil
}

func (b *Bot) handleConsent(c tele.Context, session *UserSession, consent bool) error {
	c.Respond()
	if session.State != StateSignUpConsent {
		return nil
	}
	session.SignUp.PhotoConsent = consent
	form := session.SignUp

	ctx, app := b.app(c)
	err := app.SignUp(ctx, form)
	b.resetSession(c)
	if err != nil {
		b.Log.Info("sign up rejected", logger.String("device", app.Device()), logger.Error(err))
	}
	return b.showMenu(c, app)
}
