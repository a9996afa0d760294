package atelier

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Contact topics the form router accepts. Each topic lands in its own
// admin inbox so order questions don't drown out workshop signups.
const (
	TopicGeneral   = "general"
	TopicOrders    = "orders"
	TopicWorkshops = "workshops"
)

func validTopic(topic string) bool {
	switch topic {
	case TopicGeneral, TopicOrders, TopicWorkshops:
		return true
	}
	return false
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact("", "", CsrfToken(c)))
}

// handleContactSubmit routes a contact-form submission to a topic inbox.
// Unknown topics fall back to the general inbox rather than erroring.
func (a *App) handleContactSubmit(c echo.Context) error {
	if !a.contactLimiter.Check(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many messages. Try again later.")
	}

	topic := c.Param("topic")
	if !validTopic(topic) {
		topic = TopicGeneral
	}
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	body := strings.TrimSpace(c.FormValue("message"))

	if name == "" || email == "" || body == "" {
		return RenderStatus(c, http.StatusBadRequest,
			a.Views.Contact(topic, "All fields are required.", CsrfToken(c)))
	}
	if !strings.Contains(email, "@") || len(email) > 254 {
		return RenderStatus(c, http.StatusBadRequest,
			a.Views.Contact(topic, "That email address doesn't look right.", CsrfToken(c)))
	}
	if len(body) > 10000 {
		return RenderStatus(c, http.StatusBadRequest,
			a.Views.Contact(topic, "Message is too long.", CsrfToken(c)))
	}

	a.contactLimiter.Record(c.RealIP())
	if _, err := a.Store.SaveMessage(ContactMessage{
		Topic: topic,
		Name:  name,
		Email: email,
		Body:  body,
	}); err != nil {
		return err
	}
	a.Log.Info().Str("topic", topic).Msg("contact message received")
	return Render(c, a.Views.Contact(topic, "Thanks! We'll get back to you.", CsrfToken(c)))
}

// handleAdminMessages lists contact messages, optionally filtered by topic.
func (a *App) handleAdminMessages(c echo.Context) error {
	topic := c.QueryParam("topic")
	if topic != "" && !validTopic(topic) {
		return c.NoContent(http.StatusBadRequest)
	}
	msgs, err := a.Store.ListMessages(topic)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminMessages(msgs, topic, CsrfToken(c)))
}
