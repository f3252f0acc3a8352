package core

type (
	// TextMessage is a short message sent to a phone number (WhatsApp).
	TextMessage struct {
		Phone string
		Body  string
	}

	// TextService is any service that can send text messages.
	TextService interface {
		// SendTexts sends messages concurrently
		SendTexts(messages ...*TextMessage)
	}
)

func (m *TextMessage) HasRecipient() bool { return m.Phone != "" }
