package models

// Session status values. A session starts active and only an explicit admin
// action moves it to resolved; resolved is terminal for the customer side.
const (
	SessionActive   = "active"
	SessionResolved = "resolved"
)

// Session is one customer-to-staff chat conversation. LastMessage and
// LastMessageTime are a denormalized cache of the newest message in the
// session's message subtree, updated by whichever party sends.
type Session struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	// LastMessage mirrors the text of the most recent message.
	LastMessage string `json:"lastMessage"`
	// LastMessageTime is unix milliseconds, assigned by the store.
	LastMessageTime int64 `json:"lastMessageTime"`
	// UnreadCount tracks customer messages not yet viewed by staff.
	UnreadCount int    `json:"unreadCount"`
	Status      string `json:"status"`
}

// Resolved reports whether the session has been closed by staff.
func (s Session) Resolved() bool { return s.Status == SessionResolved }

// Record flattens the session metadata into store fields. The messages
// subtree is never part of the record; it lives under its own child paths.
func (s Session) Record() map[string]any {
	rec := map[string]any{
		"customerName":    s.CustomerName,
		"customerEmail":   s.CustomerEmail,
		"lastMessage":     s.LastMessage,
		"lastMessageTime": s.LastMessageTime,
		"unreadCount":     s.UnreadCount,
		"status":          s.Status,
	}
	if s.CustomerPhone != "" {
		rec["customerPhone"] = s.CustomerPhone
	}
	return rec
}

// SessionFromRecord decodes a raw store snapshot into a Session, defaulting
// anything the schemaless store left out. Malformed values degrade to zero
// values rather than propagating a parse error; a missing status means the
// session is still active.
func SessionFromRecord(id string, rec map[string]any) Session {
	s := Session{
		ID:              id,
		CustomerName:    asString(rec["customerName"]),
		CustomerEmail:   asString(rec["customerEmail"]),
		CustomerPhone:   asString(rec["customerPhone"]),
		LastMessage:     asString(rec["lastMessage"]),
		LastMessageTime: asInt64(rec["lastMessageTime"]),
		UnreadCount:     asInt(rec["unreadCount"]),
		Status:          asString(rec["status"]),
	}
	if s.Status == "" {
		s.Status = SessionActive
	}
	if s.UnreadCount < 0 {
		s.UnreadCount = 0
	}
	return s
}
