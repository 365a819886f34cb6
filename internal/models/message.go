package models

// Message sender roles. FromBot exists only for client-side system text (the
// widget greeting) and is never written to the store.
const (
	FromCustomer = "customer"
	FromAdmin    = "admin"
	FromBot      = "bot"
)

// Message is one entry in a session's ordered, append-only message list.
// Timestamps are assigned by the store at write time, so within a session
// they define the send order; consumers sort ascending before rendering and
// never rely on storage insertion order.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	// Read is set by the staff reader on customer messages. Admin messages do
	// not carry a reciprocal flag.
	Read bool `json:"read"`
}

// Record flattens the message into store fields.
func (m Message) Record() map[string]any {
	return map[string]any{
		"text":      m.Text,
		"from":      m.From,
		"timestamp": m.Timestamp,
		"read":      m.Read,
	}
}

// MessageFromRecord decodes a raw store snapshot into a Message, defaulting
// malformed fields instead of failing.
func MessageFromRecord(id string, rec map[string]any) Message {
	return Message{
		ID:        id,
		Text:      asString(rec["text"]),
		From:      asString(rec["from"]),
		Timestamp: asInt64(rec["timestamp"]),
		Read:      asBool(rec["read"]),
	}
}
