package session_test

import (
	"testing"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/session"
	"brewhaus/backend/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *session.Repository {
	t.Helper()
	return session.NewRepository(memstore.New())
}

// TestCreateSession_RequiresNameAndEmail verifies lead validation happens
// before any write.
func TestCreateSession_RequiresNameAndEmail(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.CreateSession("", "a@x.com", "")
	assert.ErrorIs(t, err, session.ErrMissingContact)

	_, err = repo.CreateSession("A. Kato", "   ", "")
	assert.ErrorIs(t, err, session.ErrMissingContact)

	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

// TestCreateSession_InitialState verifies the record a new session starts
// with: active, zero unread, seeded last-message cache.
func TestCreateSession_InitialState(t *testing.T) {
	// Arrange
	repo := newRepo(t)

	// Act
	id, err := repo.CreateSession("A. Kato", "a@x.com", "+254700000000")
	require.NoError(t, err)

	// Assert
	var got models.Session
	unsub := repo.Session(id, func(s models.Session) { got = s })
	defer unsub()
	assert.Equal(t, models.SessionActive, got.Status)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, session.FirstMessage, got.LastMessage)
	assert.NotZero(t, got.LastMessageTime)
	assert.Equal(t, "+254700000000", got.CustomerPhone)
}

// TestAppendMessage_RejectsEmptyText verifies whitespace-only text never
// reaches the store.
func TestAppendMessage_RejectsEmptyText(t *testing.T) {
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)

	_, err = repo.AppendMessage(id, models.FromCustomer, "   \n\t ")
	assert.ErrorIs(t, err, session.ErrEmptyMessage)

	var msgs []models.Message
	unsub := repo.Messages(id, func(m []models.Message) { msgs = m })
	defer unsub()
	assert.Empty(t, msgs, "no partial write may occur")
}

// TestAppendMessage_RejectsLocalOnlyRole verifies the bot role is never
// persisted.
func TestAppendMessage_RejectsLocalOnlyRole(t *testing.T) {
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)

	_, err = repo.AppendMessage(id, models.FromBot, "hello")
	assert.ErrorIs(t, err, session.ErrBadSender)
}

// TestUnreadCount_TracksCustomerMessagesExactly verifies the property that
// after N customer sends with nobody watching, unreadCount == N.
func TestUnreadCount_TracksCustomerMessagesExactly(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)

	// Act
	const n = 7
	for i := 0; i < n; i++ {
		_, err := repo.AppendMessage(id, models.FromCustomer, "ping")
		require.NoError(t, err)
	}

	// Assert
	var got models.Session
	unsub := repo.Session(id, func(s models.Session) { got = s })
	defer unsub()
	assert.Equal(t, n, got.UnreadCount)
}

// TestAppendMessage_AdminDoesNotIncrementUnread verifies admin sends update
// the last-message cache but leave the counter alone.
func TestAppendMessage_AdminDoesNotIncrementUnread(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)
	_, err = repo.AppendMessage(id, models.FromCustomer, "Do you ship to Kenya?")
	require.NoError(t, err)

	// Act
	_, err = repo.AppendMessage(id, models.FromAdmin, "Yes, we do!")
	require.NoError(t, err)

	// Assert
	var got models.Session
	unsub := repo.Session(id, func(s models.Session) { got = s })
	defer unsub()
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, "Yes, we do!", got.LastMessage)
}

// TestMessages_SortedAscendingByTimestamp verifies consumers never see
// storage order.
func TestMessages_SortedAscendingByTimestamp(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)
	texts := []string{"first", "second", "third", "fourth"}
	for _, txt := range texts {
		_, err := repo.AppendMessage(id, models.FromCustomer, txt)
		require.NoError(t, err)
	}

	// Act
	var msgs []models.Message
	unsub := repo.Messages(id, func(m []models.Message) { msgs = m })
	defer unsub()

	// Assert
	require.Len(t, msgs, len(texts))
	for i, m := range msgs {
		assert.Equal(t, texts[i], m.Text)
		if i > 0 {
			assert.Greater(t, m.Timestamp, msgs[i-1].Timestamp)
		}
	}
}

// TestSessions_SortedByRecentActivity verifies the most recently active
// conversation always sorts first.
func TestSessions_SortedByRecentActivity(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	first, err := repo.CreateSession("First", "f@x.com", "")
	require.NoError(t, err)
	second, err := repo.CreateSession("Second", "s@x.com", "")
	require.NoError(t, err)

	// Act - activity on the older session moves it back to the top
	_, err = repo.AppendMessage(first, models.FromCustomer, "still here")
	require.NoError(t, err)

	var list []models.Session
	unsub := repo.Sessions(func(s []models.Session) { list = s })
	defer unsub()

	// Assert
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].ID)
	assert.Equal(t, second, list[1].ID)
}

// TestMarkResolved_Idempotent verifies resolving twice leaves status
// resolved with no error.
func TestMarkResolved_Idempotent(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.MarkResolved(id))
	require.NoError(t, repo.MarkResolved(id))

	// Assert
	var got models.Session
	unsub := repo.Session(id, func(s models.Session) { got = s })
	defer unsub()
	assert.Equal(t, models.SessionResolved, got.Status)
}

// TestOpenThread_ClearsUnreadState verifies that opening a conversation is
// what clears it: messages flagged read, counter reset, idempotently.
func TestOpenThread_ClearsUnreadState(t *testing.T) {
	// Arrange
	repo := newRepo(t)
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := repo.AppendMessage(id, models.FromCustomer, "unread one")
		require.NoError(t, err)
	}

	// Act - open the thread twice
	for open := 0; open < 2; open++ {
		var msgs []models.Message
		unsub := repo.OpenThread(id, func(m []models.Message) { msgs = m })
		for _, m := range msgs {
			if m.From == models.FromCustomer {
				assert.True(t, m.Read || open == 0, "second open must see read flags")
			}
		}
		unsub()
	}

	// Assert
	var sess models.Session
	unsubS := repo.Session(id, func(s models.Session) { sess = s })
	defer unsubS()
	assert.Equal(t, 0, sess.UnreadCount)

	var msgs []models.Message
	unsubM := repo.Messages(id, func(m []models.Message) { msgs = m })
	defer unsubM()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.True(t, m.Read)
	}
}

// TestSupportFlow_EndToEnd walks the full scenario: lead capture, customer
// question, staff open, staff reply, resolution.
func TestSupportFlow_EndToEnd(t *testing.T) {
	repo := newRepo(t)

	// Customer submits the lead form.
	id, err := repo.CreateSession("A. Kato", "a@x.com", "")
	require.NoError(t, err)

	var sess models.Session
	unsubS := repo.Session(id, func(s models.Session) { sess = s })
	defer unsubS()
	assert.Equal(t, models.SessionActive, sess.Status)
	assert.Equal(t, 0, sess.UnreadCount)

	// Customer asks a question.
	_, err = repo.AppendMessage(id, models.FromCustomer, "Do you ship to Kenya?")
	require.NoError(t, err)
	assert.Equal(t, "Do you ship to Kenya?", sess.LastMessage)
	assert.Equal(t, 1, sess.UnreadCount)

	// Staff open the thread: unread state clears.
	unsubT := repo.OpenThread(id, func([]models.Message) {})
	assert.Equal(t, 0, sess.UnreadCount)

	// Staff reply: cache updates, counter untouched.
	_, err = repo.AppendMessage(id, models.FromAdmin, "Yes, we do!")
	require.NoError(t, err)
	assert.Equal(t, "Yes, we do!", sess.LastMessage)
	assert.Equal(t, 0, sess.UnreadCount)
	unsubT()

	// Staff resolve: terminal for the customer side.
	require.NoError(t, repo.MarkResolved(id))
	assert.True(t, sess.Resolved())
}
