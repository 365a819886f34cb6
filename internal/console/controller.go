// Package console implements the staff-side controller: simultaneous session
// and review subscriptions, tab and selection state, derived unread/pending
// badges, reply composition, and the resolution and review-response actions.
package console

import (
	"errors"
	"log"
	"strings"
	"sync"

	"brewhaus/backend/internal/auth"
	"brewhaus/backend/internal/mailer"
	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/review"
	"brewhaus/backend/internal/sales"
	"brewhaus/backend/internal/session"
)

var (
	// ErrLoginRequired reroutes the console to its login view.
	ErrLoginRequired = errors.New("console: authentication required")
	// ErrNoSelection guards actions that need a selected session or review.
	ErrNoSelection = errors.New("console: nothing selected")
)

// Tab is the console's active panel.
type Tab string

const (
	TabChats   Tab = "chats"
	TabReviews Tab = "reviews"
	TabSales   Tab = "sales"
)

// Authenticator is the slice of the identity provider the console consumes.
type Authenticator interface {
	Verify(token string) (*auth.Principal, error)
}

// Controller drives one signed-in staff member's console. All methods are
// safe for concurrent use.
type Controller struct {
	sessions *session.Repository
	reviews  *review.Repository
	authn    Authenticator
	mail     *mailer.Service
	sales    *sales.Reader
	onUpdate func()

	mu        sync.Mutex
	principal *auth.Principal
	tab       Tab

	sessionList []models.Session
	reviewList  []models.Review
	thread      []models.Message

	selectedSession string
	selectedProduct string
	selectedReview  string
	errText         string

	unsubSessions func()
	unsubReviews  func()
	unsubThread   func()
}

// NewController wires a console. mail and salesReader may be nil; the
// corresponding features degrade (no follow-up email, empty sales tab).
func NewController(sessions *session.Repository, reviews *review.Repository,
	authn Authenticator, mail *mailer.Service, salesReader *sales.Reader,
	onUpdate func()) *Controller {
	return &Controller{
		sessions: sessions,
		reviews:  reviews,
		authn:    authn,
		mail:     mail,
		sales:    salesReader,
		onUpdate: onUpdate,
		tab:      TabChats,
	}
}

// Start verifies the caller and opens both live subscriptions. An absent or
// invalid token yields ErrLoginRequired and nothing is subscribed.
func (c *Controller) Start(token string) error {
	principal, err := c.authn.Verify(token)
	if err != nil {
		return ErrLoginRequired
	}

	c.mu.Lock()
	c.principal = principal
	c.mu.Unlock()

	unsubS := c.sessions.Sessions(c.handleSessions)
	unsubR := c.reviews.Reviews(c.handleReviews)
	c.mu.Lock()
	c.unsubSessions, c.unsubReviews = unsubS, unsubR
	c.mu.Unlock()
	c.signal()
	return nil
}

// Stop tears down every live subscription. Safe to call twice.
func (c *Controller) Stop() {
	c.DeselectSession()
	c.mu.Lock()
	unsubS, unsubR := c.unsubSessions, c.unsubReviews
	c.unsubSessions, c.unsubReviews = nil, nil
	c.mu.Unlock()
	if unsubS != nil {
		unsubS()
	}
	if unsubR != nil {
		unsubR()
	}
}

// Principal returns the signed-in staff identity, nil before Start succeeds.
func (c *Controller) Principal() *auth.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// SetTab switches the active panel.
func (c *Controller) SetTab(tab Tab) {
	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()
	c.signal()
}

// ActiveTab returns the current panel.
func (c *Controller) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// Sessions returns the latest session list emission, most recent first.
func (c *Controller) Sessions() []models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionList
}

// Reviews returns the latest review list emission, newest first.
func (c *Controller) Reviews() []models.Review {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reviewList
}

// Thread returns the selected session's messages, oldest first.
func (c *Controller) Thread() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread
}

// SelectedSession returns the selected session id, empty when none.
func (c *Controller) SelectedSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedSession
}

// ChatBadge is the chats tab badge: sessions with unread customer messages.
// Recomputed from the latest emission, never separately tracked.
func (c *Controller) ChatBadge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessionList {
		if s.UnreadCount > 0 {
			n++
		}
	}
	return n
}

// ReviewBadge is the reviews tab badge: reviews still awaiting a response.
func (c *Controller) ReviewBadge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.reviewList {
		if r.Pending() {
			n++
		}
	}
	return n
}

// SelectSession opens a conversation. Opening is what clears its unread
// state: the thread subscription marks customer messages read and resets the
// counter as a side effect. Any previously selected thread is unsubscribed
// first.
func (c *Controller) SelectSession(id string) {
	c.DeselectSession()

	c.mu.Lock()
	c.selectedSession = id
	c.mu.Unlock()

	unsub := c.sessions.OpenThread(id, c.handleThread)
	c.mu.Lock()
	c.unsubThread = unsub
	c.mu.Unlock()
	c.signal()
}

// DeselectSession closes the thread panel and releases its subscription.
func (c *Controller) DeselectSession() {
	c.mu.Lock()
	unsub := c.unsubThread
	c.unsubThread = nil
	c.selectedSession = ""
	c.thread = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	c.signal()
}

// Reply sends an admin message to the selected session. Text is trimmed and
// empty replies are rejected before any network write.
func (c *Controller) Reply(text string) error {
	if strings.TrimSpace(text) == "" {
		return session.ErrEmptyMessage
	}

	c.mu.Lock()
	id := c.selectedSession
	c.mu.Unlock()
	if id == "" {
		return ErrNoSelection
	}

	if _, err := c.sessions.AppendMessage(id, models.FromAdmin, text); err != nil {
		c.setError("Reply failed. Check the connection and try again.")
		return err
	}
	return nil
}

// Resolve marks the selected session resolved and closes the panel locally,
// without waiting for the subscription round trip. When a mail service is
// configured the follow-up email is composed and handed off; a send failure
// is logged, not surfaced, since the session is already resolved.
func (c *Controller) Resolve() error {
	c.mu.Lock()
	id := c.selectedSession
	var resolved models.Session
	for _, s := range c.sessionList {
		if s.ID == id {
			resolved = s
			break
		}
	}
	c.mu.Unlock()
	if id == "" {
		return ErrNoSelection
	}

	if err := c.sessions.MarkResolved(id); err != nil {
		c.setError("Could not resolve the session.")
		return err
	}
	c.DeselectSession()

	if c.mail != nil && resolved.CustomerEmail != "" {
		if err := c.mail.SendFollowUp(resolved.CustomerName, resolved.CustomerEmail); err != nil {
			log.Printf("WARNING: follow-up email for session %s not handed off: %v", id, err)
		}
	}
	return nil
}

// SelectReview opens a review detail panel.
func (c *Controller) SelectReview(productID, reviewID string) {
	c.mu.Lock()
	c.selectedProduct, c.selectedReview = productID, reviewID
	c.mu.Unlock()
	c.signal()
}

// SelectedReview returns the selected (productID, reviewID) pair.
func (c *Controller) SelectedReview() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedProduct, c.selectedReview
}

// RespondToReview upserts the staff response on the selected review. A
// second response overwrites the first; no history is kept.
func (c *Controller) RespondToReview(text string) error {
	c.mu.Lock()
	productID, reviewID := c.selectedProduct, c.selectedReview
	c.mu.Unlock()
	if productID == "" || reviewID == "" {
		return ErrNoSelection
	}
	if err := c.reviews.Respond(productID, reviewID, text); err != nil {
		if !errors.Is(err, review.ErrEmptyResponse) {
			c.setError("Could not save the response.")
		}
		return err
	}
	return nil
}

// SalesSummary backs the sales tab. Degrades to an error when no orders
// database is configured.
func (c *Controller) SalesSummary() (sales.Summary, error) {
	if c.sales == nil {
		return sales.Summary{}, sales.ErrUnavailable
	}
	return c.sales.Summary()
}

// Err returns the current inline error text, empty when none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errText
}

func (c *Controller) handleSessions(list []models.Session) {
	c.mu.Lock()
	c.sessionList = list
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) handleReviews(list []models.Review) {
	c.mu.Lock()
	c.reviewList = list
	c.mu.Unlock()
	c.signal()
}

func (c *Controller) handleThread(msgs []models.Message) {
	c.mu.Lock()
	c.thread = msgs
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
