package mailer_test

import (
	"testing"

	"brewhaus/backend/internal/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(e mailer.Email) error {
	args := m.Called(e)
	return args.Error(0)
}

// TestComposeFollowUp_Content verifies the rendered follow-up carries the
// customer name, the store name and the right envelope.
func TestComposeFollowUp_Content(t *testing.T) {
	c := mailer.Composer{StoreName: "Brewhaus Coffee"}

	msg, err := c.ComposeFollowUp("A. Kato", "a@x.com")

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Your chat with Brewhaus Coffee", msg.Subject)
	assert.Contains(t, msg.HTML, "A. Kato")
	assert.Contains(t, msg.HTML, "Brewhaus Coffee")
	assert.Contains(t, msg.Text, "A. Kato")
	assert.Contains(t, msg.Text, "Brewhaus Coffee")
}

// TestSendFollowUp_HandsOffToSender verifies the composed message reaches the
// configured sender unchanged.
func TestSendFollowUp_HandsOffToSender(t *testing.T) {
	// Arrange
	sender := new(mockSender)
	svc := mailer.NewService("Brewhaus Coffee", sender)
	sender.On("Send", mock.MatchedBy(func(e mailer.Email) bool {
		return e.To == "a@x.com" && e.Subject == "Your chat with Brewhaus Coffee"
	})).Return(nil)

	// Act / Assert
	require.NoError(t, svc.SendFollowUp("A. Kato", "a@x.com"))
	sender.AssertExpectations(t)
}

// TestSendFollowUp_NoSender verifies the degraded path.
func TestSendFollowUp_NoSender(t *testing.T) {
	svc := mailer.NewService("Brewhaus Coffee", nil)

	assert.ErrorIs(t, svc.SendFollowUp("A. Kato", "a@x.com"), mailer.ErrNoSender)
}
