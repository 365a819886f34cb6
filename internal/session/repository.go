// Package session implements the chat session repository and the per-session
// message stream over the realtime store. All list emissions are re-derived
// and re-sorted from full snapshots; nothing here trusts storage order.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/store"
)

var (
	// ErrEmptyMessage rejects empty or whitespace-only message text before
	// any network write.
	ErrEmptyMessage = errors.New("session: empty message text")
	// ErrMissingContact rejects session creation without name and email.
	ErrMissingContact = errors.New("session: customer name and email are required")
	// ErrBadSender rejects sender roles that are never persisted.
	ErrBadSender = errors.New("session: sender must be customer or admin")
)

// FirstMessage seeds the denormalized last-message cache on a new session.
const FirstMessage = "Chat started"

// Repository exposes session CRUD and message streams over a store.Store.
type Repository struct {
	Store store.Store
}

// NewRepository wires a repository to the given store.
func NewRepository(st store.Store) *Repository {
	return &Repository{Store: st}
}

func sessionPath(id string) string { return "chats/" + id }

func messagesPath(sessionID string) string { return "chats/" + sessionID + "/messages" }

func messagePath(sessionID, messageID string) string {
	return "chats/" + sessionID + "/messages/" + messageID
}

// CreateSession writes a new active session and returns its push key. Phone
// is optional; name and email are required and validated here, before any
// write is attempted.
func (r *Repository) CreateSession(name, email, phone string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return "", ErrMissingContact
	}

	id := r.Store.GenerateKey("chats")
	rec := map[string]any{
		"customerName":    name,
		"customerEmail":   email,
		"lastMessage":     FirstMessage,
		"lastMessageTime": store.ServerTimestamp,
		"unreadCount":     0,
		"status":          models.SessionActive,
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		rec["customerPhone"] = phone
	}
	if err := r.Store.Write(sessionPath(id), rec); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Session subscribes to one session record. The callback receives the decoded
// session on every change; a deleted or missing record decodes with the zero
// ID so callers can tell it apart.
func (r *Repository) Session(id string, onChange func(models.Session)) func() {
	return r.Store.Subscribe(sessionPath(id), func(snap store.Snapshot) {
		if snap == nil {
			onChange(models.Session{})
			return
		}
		onChange(models.SessionFromRecord(id, snap))
	})
}

// Sessions subscribes to the full session list. Every emission is re-sorted
// descending by LastMessageTime so the most recently active conversation
// always sorts first, regardless of storage order.
func (r *Repository) Sessions(onChange func([]models.Session)) func() {
	return r.Store.Subscribe("chats", func(snap store.Snapshot) {
		list := make([]models.Session, 0, len(snap))
		for id, raw := range snap {
			rec, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			list = append(list, models.SessionFromRecord(id, rec))
		}
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].LastMessageTime != list[j].LastMessageTime {
				return list[i].LastMessageTime > list[j].LastMessageTime
			}
			return list[i].ID > list[j].ID
		})
		onChange(list)
	})
}

// MarkResolved sets the session status to resolved. Resolving an already
// resolved session rewrites the same value, so the call is idempotent.
func (r *Repository) MarkResolved(id string) error {
	return r.Store.Update(sessionPath(id), map[string]any{
		"status": models.SessionResolved,
	})
}

// ResetUnread zeroes the session's unread counter.
func (r *Repository) ResetUnread(id string) error {
	return r.Store.Update(sessionPath(id), map[string]any{
		"unreadCount": 0,
	})
}

// AppendMessage validates and writes one message, then refreshes the
// session's denormalized last-message cache. Customer sends increment the
// unread counter; admin sends leave it alone, since the staff view derives
// its own pending count from list filtering. The message write and the cache
// update are two operations; a brief window where one is visible without the
// other is accepted.
func (r *Repository) AppendMessage(sessionID, from, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if from != models.FromCustomer && from != models.FromAdmin {
		return "", ErrBadSender
	}

	msgID := r.Store.GenerateKey(messagesPath(sessionID))
	msg := map[string]any{
		"text":      text,
		"from":      from,
		"timestamp": store.ServerTimestamp,
		"read":      false,
	}
	if err := r.Store.Write(messagePath(sessionID, msgID), msg); err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}

	fields := map[string]any{
		"lastMessage":     text,
		"lastMessageTime": store.ServerTimestamp,
	}
	if from == models.FromCustomer {
		fields["unreadCount"] = r.unreadCount(sessionID) + 1
	}
	if err := r.Store.Update(sessionPath(sessionID), fields); err != nil {
		return "", fmt.Errorf("update session cache: %w", err)
	}
	return msgID, nil
}

// Messages subscribes to a session's message list. Every emission is decoded
// and sorted ascending by timestamp (push-key order breaks ties, which keeps
// locally known send order for writes landing in the same millisecond).
func (r *Repository) Messages(sessionID string, onChange func([]models.Message)) func() {
	return r.Store.Subscribe(messagesPath(sessionID), func(snap store.Snapshot) {
		onChange(decodeMessages(snap))
	})
}

// OpenThread is the staff-side message subscription: the same ordered stream
// as Messages, plus the side effect that opening the conversation is what
// clears its unread state. On every emission any unread customer message is
// marked read and the session counter is reset. The writes only happen when
// something is actually unread, so the re-emission they trigger settles
// immediately and repeated opens are idempotent.
func (r *Repository) OpenThread(sessionID string, onChange func([]models.Message)) func() {
	first := true
	return r.Messages(sessionID, func(msgs []models.Message) {
		onChange(msgs)

		dirty := false
		for _, m := range msgs {
			if m.From == models.FromCustomer && !m.Read {
				_ = r.Store.Update(messagePath(sessionID, m.ID), map[string]any{
					"read": true,
				})
				dirty = true
			}
		}
		if dirty {
			_ = r.ResetUnread(sessionID)
		} else if first && r.unreadCount(sessionID) > 0 {
			// Counter drifted from the flags (eventual consistency between
			// the cache update and the message write). Settle it once.
			_ = r.ResetUnread(sessionID)
		}
		first = false
	})
}

func (r *Repository) unreadCount(sessionID string) int {
	snap, err := r.Store.Get(sessionPath(sessionID))
	if err != nil || snap == nil {
		return 0
	}
	return models.SessionFromRecord(sessionID, snap).UnreadCount
}

func decodeMessages(snap store.Snapshot) []models.Message {
	list := make([]models.Message, 0, len(snap))
	for id, raw := range snap {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		list = append(list, models.MessageFromRecord(id, rec))
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp < list[j].Timestamp
		}
		return list[i].ID < list[j].ID
	})
	return list
}
