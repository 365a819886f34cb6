// Package widget implements the customer-side chat widget controller: the
// Closed -> LeadCapture -> SessionActive state machine, the optimistic local
// pending buffer merged with the canonical remote stream, and the full reset
// the moment staff resolve the session.
package widget

import (
	"fmt"
	"strings"
	"sync"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/session"
)

// State is the widget's position in its lifecycle.
type State int

const (
	// StateClosed: launcher button only. A live session may still exist
	// behind it; admin replies light the launcher flag.
	StateClosed State = iota
	// StateLeadCapture: name/email form, shown before any session exists.
	StateLeadCapture
	// StateActive: open conversation bound to a session id.
	StateActive
)

// Greeting is the local-only system text shown at the top of the thread. It
// carries the bot role and is never persisted.
var Greeting = models.Message{
	ID:   "local-greeting",
	Text: "Hi there! Leave us a message and we'll get right back to you.",
	From: models.FromBot,
}

// PendingMessage is an optimistically shown customer message whose store
// write may not have landed yet. A failed write marks it Failed instead of
// rolling it back, so the customer still sees what they sent.
type PendingMessage struct {
	LocalID string
	Text    string
	Failed  bool
}

// Controller drives one customer's widget. All methods are safe for
// concurrent use; store callbacks may arrive on another goroutine.
type Controller struct {
	repo     *session.Repository
	onUpdate func()

	mu        sync.Mutex
	state     State
	name      string
	email     string
	phone     string
	sessionID string
	draft     string

	remote   []models.Message
	pending  []PendingMessage
	localSeq int

	launcherFlag bool
	adminSeen    int
	errText      string

	unsubSession  func()
	unsubMessages func()
}

// NewController builds a widget controller. onUpdate, if non-nil, fires after
// every externally visible state change (the transport uses it to push a
// fresh snapshot to the browser).
func NewController(repo *session.Repository, onUpdate func()) *Controller {
	return &Controller{repo: repo, onUpdate: onUpdate, state: StateClosed}
}

// Open transitions the launcher into the widget. With a live session it
// resumes the conversation; otherwise it shows the lead form. Opening always
// clears the launcher's new-message flag, independent of the store-side
// unread counter.
func (c *Controller) Open() {
	c.mu.Lock()
	c.launcherFlag = false
	if c.state == StateClosed {
		if c.sessionID != "" {
			c.state = StateActive
		} else {
			c.state = StateLeadCapture
		}
	}
	c.mu.Unlock()
	c.signal()
}

// Close collapses the widget back to the launcher. Subscriptions stay live so
// an admin reply can light the launcher flag.
func (c *Controller) Close() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	c.signal()
}

// SubmitLead validates the lead form and creates the session. Name and email
// are required; phone is optional; a quick-topic choice pre-fills the message
// draft but never bypasses the name/email requirement.
func (c *Controller) SubmitLead(name, email, phone, topic string) error {
	c.mu.Lock()
	if c.state != StateLeadCapture {
		c.mu.Unlock()
		return fmt.Errorf("widget: lead form is not open")
	}
	c.mu.Unlock()

	id, err := c.repo.CreateSession(name, email, phone)
	if err != nil {
		c.setError("We couldn't start your chat. Please try again.")
		return err
	}

	c.mu.Lock()
	c.name, c.email, c.phone = name, email, phone
	c.sessionID = id
	c.state = StateActive
	c.errText = ""
	if topic != "" {
		c.draft = topic
	}
	c.mu.Unlock()

	unsubS := c.repo.Session(id, c.handleSession)
	unsubM := c.repo.Messages(id, c.handleMessages)
	c.mu.Lock()
	c.unsubSession, c.unsubMessages = unsubS, unsubM
	c.mu.Unlock()
	c.signal()
	return nil
}

// Send appends a customer message. The message is shown locally right away;
// a failed write marks it Failed and surfaces an inline error, it is never
// rolled back.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	if c.state != StateActive || c.sessionID == "" {
		c.mu.Unlock()
		return fmt.Errorf("widget: no active session")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.mu.Unlock()
		return session.ErrEmptyMessage
	}
	c.localSeq++
	localID := fmt.Sprintf("local-%d", c.localSeq)
	c.pending = append(c.pending, PendingMessage{LocalID: localID, Text: text})
	c.draft = ""
	sessionID := c.sessionID
	c.mu.Unlock()
	c.signal()

	if _, err := c.repo.AppendMessage(sessionID, models.FromCustomer, text); err != nil {
		c.mu.Lock()
		for i := range c.pending {
			if c.pending[i].LocalID == localID {
				c.pending[i].Failed = true
			}
		}
		c.errText = "Your message couldn't be delivered."
		c.mu.Unlock()
		c.signal()
		return err
	}
	return nil
}

// Draft returns the current composer text (quick-topic pre-fill).
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Messages merges the canonical remote stream with the local pending buffer.
// The remote list is already sorted by store timestamp; unconfirmed pending
// messages trail it in send order. The greeting heads the thread whenever the
// widget is open.
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Message, 0, len(c.remote)+len(c.pending)+1)
	if c.state != StateClosed {
		out = append(out, Greeting)
	}
	out = append(out, c.remote...)
	for _, p := range c.pending {
		out = append(out, models.Message{
			ID:   p.LocalID,
			Text: p.Text,
			From: models.FromCustomer,
		})
	}
	return out
}

// FailedMessages returns the pending messages whose writes failed, for the
// inline "not delivered" markers.
func (c *Controller) FailedMessages() []PendingMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PendingMessage
	for _, p := range c.pending {
		if p.Failed {
			out = append(out, p)
		}
	}
	return out
}

// State returns the current widget state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the bound session id, empty when none exists.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// HasNewMessage reports the launcher's local-only new-message flag.
func (c *Controller) HasNewMessage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.launcherFlag
}

// Err returns the current inline error text, empty when none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errText
}

// Teardown releases the store subscriptions. Called when the page unloads.
func (c *Controller) Teardown() {
	c.mu.Lock()
	unsubS, unsubM := c.unsubSession, c.unsubMessages
	c.unsubSession, c.unsubMessages = nil, nil
	c.mu.Unlock()
	if unsubS != nil {
		unsubS()
	}
	if unsubM != nil {
		unsubM()
	}
}

// handleSession reacts to the subscribed session record. A resolved status is
// terminal: the widget resets completely so the next open starts a brand-new
// session instead of resuming.
func (c *Controller) handleSession(s models.Session) {
	if s.ID == "" || !s.Resolved() {
		return
	}

	c.Teardown()

	c.mu.Lock()
	c.state = StateClosed
	c.name, c.email, c.phone = "", "", ""
	c.sessionID = ""
	c.draft = ""
	c.remote = nil
	c.pending = nil
	c.launcherFlag = false
	c.adminSeen = 0
	c.errText = ""
	c.mu.Unlock()
	c.signal()
}

// handleMessages replaces the remote stream on every emission, reconciles the
// pending buffer (the remote copy wins once the write is visible), and lights
// the launcher flag when an admin message arrives while the widget is closed.
func (c *Controller) handleMessages(msgs []models.Message) {
	c.mu.Lock()
	c.remote = msgs

	// Drop pending entries confirmed by the remote stream. Matching is by
	// text over customer-authored remote messages, consumed in order.
	confirmed := make(map[string]int)
	for _, m := range msgs {
		if m.From == models.FromCustomer {
			confirmed[m.Text]++
		}
	}
	kept := c.pending[:0]
	for _, p := range c.pending {
		if !p.Failed && confirmed[p.Text] > 0 {
			confirmed[p.Text]--
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept

	admins := 0
	for _, m := range msgs {
		if m.From == models.FromAdmin {
			admins++
		}
	}
	if c.state == StateClosed && admins > c.adminSeen {
		c.launcherFlag = true
	}
	c.adminSeen = admins
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) setError(text string) {
	c.mu.Lock()
	c.errText = text
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) signal() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
