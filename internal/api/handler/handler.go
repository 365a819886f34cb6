// Package handler is the gin HTTP surface: admin login, review submission,
// and the WebSocket transports carrying widget and console state.
package handler

import (
	"brewhaus/backend/internal/auth"
	"brewhaus/backend/internal/mailer"
	"brewhaus/backend/internal/review"
	"brewhaus/backend/internal/sales"
	"brewhaus/backend/internal/session"
)

// Handler carries the wired services into the route handlers.
type Handler struct {
	Sessions *session.Repository
	Reviews  *review.Repository
	Auth     *auth.Service
	Mail     *mailer.Service
	Sales    *sales.Reader

	// StoreOK is false when the realtime backend is unconfigured; the
	// transports then report the unavailable state instead of broken panels.
	StoreOK bool
}

func NewHandler(sessions *session.Repository, reviews *review.Repository,
	authSvc *auth.Service, mail *mailer.Service, salesReader *sales.Reader,
	storeOK bool) *Handler {
	return &Handler{
		Sessions: sessions,
		Reviews:  reviews,
		Auth:     authSvc,
		Mail:     mail,
		Sales:    salesReader,
		StoreOK:  storeOK,
	}
}
