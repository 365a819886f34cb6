// Package mailer composes the follow-up email sent after a chat session is
// resolved and hands it to an external Sender. Delivery guarantees belong to
// the sender; only the content template lives here.
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

// ErrNoSender is returned when follow-ups are requested but no sender is
// configured.
var ErrNoSender = errors.New("mailer: no sender configured")

// Email is the payload handed to the external mail sender.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender is the external mail collaborator.
type Sender interface {
	Send(e Email) error
}

var htmlTmpl = template.Must(template.New("followup").Parse(`<p>Hi {{.Name}},</p>
<p>Thanks for chatting with {{.StoreName}}. Your conversation has been marked as
resolved. If anything is still unclear, just reply to this email or open the
chat again on our site.</p>
<p>&mdash; The {{.StoreName}} team</p>`))

const textTmpl = `Hi %s,

Thanks for chatting with %s. Your conversation has been marked as resolved.
If anything is still unclear, just reply to this email or open the chat again
on our site.

- The %s team`

// Composer builds follow-up emails for one store.
type Composer struct {
	StoreName string
}

// ComposeFollowUp renders the resolution follow-up for a customer.
func (c Composer) ComposeFollowUp(name, email string) (Email, error) {
	var buf bytes.Buffer
	data := struct{ Name, StoreName string }{Name: name, StoreName: c.StoreName}
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("mailer: render follow-up: %w", err)
	}
	return Email{
		To:      email,
		Subject: fmt.Sprintf("Your chat with %s", c.StoreName),
		HTML:    buf.String(),
		Text:    fmt.Sprintf(textTmpl, name, c.StoreName, c.StoreName),
	}, nil
}

// Service composes and hands off follow-ups.
type Service struct {
	Composer Composer
	Sender   Sender
}

func NewService(storeName string, sender Sender) *Service {
	return &Service{Composer: Composer{StoreName: storeName}, Sender: sender}
}

// SendFollowUp composes the follow-up for the given customer and hands it to
// the sender.
func (s *Service) SendFollowUp(name, email string) error {
	if s.Sender == nil {
		return ErrNoSender
	}
	msg, err := s.Composer.ComposeFollowUp(name, email)
	if err != nil {
		return err
	}
	return s.Sender.Send(msg)
}
