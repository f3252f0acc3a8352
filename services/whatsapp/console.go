package whatsappsvc

import (
	"log"
	"sync"

	"github.com/canteraproject/cantera/core"
)

var (
	SentTexts = make([]core.TextMessage, 0)
	mu        sync.Mutex
)

// ClearSentTexts empties the sent-text log. Test helper.
func ClearSentTexts() {
	mu.Lock()
	SentTexts = SentTexts[:0]
	mu.Unlock()
}

// consoleService simulates a WhatsApp Business API sender by logging
// messages. A real gateway would slot in behind core.TextService.
type consoleService struct {
	disableOutput bool
}

var _ core.TextService = (*consoleService)(nil)

func NewConsoleService() core.TextService {
	return &consoleService{}
}

// NewConsoleServiceMock sends synchronously and keeps quiet; for tests.
func NewConsoleServiceMock() core.TextService {
	return &consoleService{disableOutput: true}
}

func (svc consoleService) SendTexts(messages ...*core.TextMessage) {
	for _, msg := range messages {
		if !msg.HasRecipient() || msg.Body == "" {
			continue
		}
		if !svc.disableOutput {
			log.Printf("WhatsApp -> %s: %s", msg.Phone, msg.Body)
		}
		mu.Lock()
		SentTexts = append(SentTexts, *msg)
		mu.Unlock()
	}
}
