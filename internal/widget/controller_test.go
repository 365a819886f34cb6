package widget_test

import (
	"testing"

	"brewhaus/backend/internal/models"
	"brewhaus/backend/internal/session"
	"brewhaus/backend/internal/store"
	"brewhaus/backend/internal/store/memstore"
	"brewhaus/backend/internal/widget"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore lets a test flip writes into failures after setup, to exercise
// the optimistic-send failure path.
type flakyStore struct {
	*memstore.Store
	fail *bool
}

func (f flakyStore) Write(path string, value map[string]any) error {
	if *f.fail {
		return store.ErrUnavailable
	}
	return f.Store.Write(path, value)
}

func (f flakyStore) Update(path string, fields map[string]any) error {
	if *f.fail {
		return store.ErrUnavailable
	}
	return f.Store.Update(path, fields)
}

func newWidget(t *testing.T) (*widget.Controller, *session.Repository) {
	t.Helper()
	repo := session.NewRepository(memstore.New())
	return widget.NewController(repo, nil), repo
}

// TestOpen_ShowsLeadCaptureAndGreeting verifies the closed launcher opens
// into the lead form with the local-only bot greeting.
func TestOpen_ShowsLeadCaptureAndGreeting(t *testing.T) {
	ctrl, _ := newWidget(t)
	assert.Equal(t, widget.StateClosed, ctrl.State())

	ctrl.Open()

	assert.Equal(t, widget.StateLeadCapture, ctrl.State())
	msgs := ctrl.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, models.FromBot, msgs[0].From)
}

// TestSubmitLead_RequiresNameAndEmail verifies validation failures leave the
// widget on the form with no session created.
func TestSubmitLead_RequiresNameAndEmail(t *testing.T) {
	ctrl, _ := newWidget(t)
	ctrl.Open()

	err := ctrl.SubmitLead("", "a@x.com", "", "")
	assert.ErrorIs(t, err, session.ErrMissingContact)
	assert.Equal(t, widget.StateLeadCapture, ctrl.State())
	assert.Empty(t, ctrl.SessionID())
}

// TestSubmitLead_TopicPrefillsDraft verifies the quick-topic choice fills the
// composer without bypassing the name/email requirement.
func TestSubmitLead_TopicPrefillsDraft(t *testing.T) {
	ctrl, _ := newWidget(t)
	ctrl.Open()

	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "", "Where is my order?"))

	assert.Equal(t, widget.StateActive, ctrl.State())
	assert.NotEmpty(t, ctrl.SessionID())
	assert.Equal(t, "Where is my order?", ctrl.Draft())
}

// TestSend_OptimisticThenReconciled verifies a sent message shows exactly
// once: immediately from the local buffer, then from the remote stream with
// no duplicate.
func TestSend_OptimisticThenReconciled(t *testing.T) {
	// Arrange
	ctrl, _ := newWidget(t)
	ctrl.Open()
	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "", ""))

	// Act
	require.NoError(t, ctrl.Send("Do you ship to Kenya?"))

	// Assert - greeting plus exactly one copy of the message
	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.FromBot, msgs[0].From)
	assert.Equal(t, "Do you ship to Kenya?", msgs[1].Text)
	assert.Equal(t, models.FromCustomer, msgs[1].From)
	assert.Empty(t, ctrl.FailedMessages())
	assert.Empty(t, ctrl.Draft(), "sending clears the composer")
}

// TestSend_EmptyRejectedLocally verifies no optimistic entry and no write
// for whitespace-only text.
func TestSend_EmptyRejectedLocally(t *testing.T) {
	ctrl, _ := newWidget(t)
	ctrl.Open()
	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "", ""))

	err := ctrl.Send("   ")
	assert.ErrorIs(t, err, session.ErrEmptyMessage)
	assert.Len(t, ctrl.Messages(), 1, "only the greeting remains")
}

// TestSend_FailureKeepsMessageMarkedFailed verifies the documented failure
// policy: the optimistic message stays visible, flagged failed, with an
// inline error; it is never rolled back.
func TestSend_FailureKeepsMessageMarkedFailed(t *testing.T) {
	// Arrange - a store that starts failing after the session exists
	fail := false
	mem := memstore.New()
	repo := session.NewRepository(flakyStore{Store: mem, fail: &fail})
	ctrl := widget.NewController(repo, nil)
	ctrl.Open()
	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "", ""))
	fail = true

	// Act
	err := ctrl.Send("Do you ship to Kenya?")

	// Assert
	require.Error(t, err)
	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Do you ship to Kenya?", msgs[1].Text)
	failed := ctrl.FailedMessages()
	require.Len(t, failed, 1)
	assert.Equal(t, "Do you ship to Kenya?", failed[0].Text)
	assert.NotEmpty(t, ctrl.Err())
}

// TestResolved_ResetsWidgetCompletely verifies the terminal transition: the
// moment the subscribed session goes resolved, the widget closes and forgets
// everything, so the next open starts a brand-new session.
func TestResolved_ResetsWidgetCompletely(t *testing.T) {
	// Arrange
	ctrl, repo := newWidget(t)
	ctrl.Open()
	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "+254700000000", ""))
	require.NoError(t, ctrl.Send("Do you ship to Kenya?"))
	id := ctrl.SessionID()

	// Act - staff resolve on their side
	require.NoError(t, repo.MarkResolved(id))

	// Assert
	assert.Equal(t, widget.StateClosed, ctrl.State())
	assert.Empty(t, ctrl.SessionID())
	assert.False(t, ctrl.HasNewMessage())
	assert.Empty(t, ctrl.Err())

	// Reopening starts from the lead form, never a resumed session.
	ctrl.Open()
	assert.Equal(t, widget.StateLeadCapture, ctrl.State())
}

// TestLauncherFlag_SetWhileClosedClearedOnOpen verifies the local-only
// new-message indicator: lit by an admin reply while the widget is closed,
// cleared the instant it opens, independent of the stored unread counter.
func TestLauncherFlag_SetWhileClosedClearedOnOpen(t *testing.T) {
	// Arrange
	ctrl, repo := newWidget(t)
	ctrl.Open()
	require.NoError(t, ctrl.SubmitLead("A. Kato", "a@x.com", "", ""))
	require.NoError(t, ctrl.Send("Do you ship to Kenya?"))
	ctrl.Close()
	assert.False(t, ctrl.HasNewMessage())

	// Act - admin replies while the widget is closed
	_, err := repo.AppendMessage(ctrl.SessionID(), models.FromAdmin, "Yes, we do!")
	require.NoError(t, err)

	// Assert
	assert.True(t, ctrl.HasNewMessage())

	ctrl.Open()
	assert.False(t, ctrl.HasNewMessage(), "opening clears the flag")
	assert.Equal(t, widget.StateActive, ctrl.State(), "the live session resumes")
}
