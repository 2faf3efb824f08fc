package notify

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Telegram broadcasts messages to a list of chat IDs over the Bot API.
// Notify returns immediately; delivery runs in the background.
type Telegram struct {
	token      string
	chatIDs    []string
	httpClient *http.Client
	baseURL    string
}

// NewTelegram creates a Telegram notifier. token and at least one chat ID
// are required; use LogNotifier otherwise.
func NewTelegram(token string, chatIDs []string) *Telegram {
	return &Telegram{
		token:      token,
		chatIDs:    chatIDs,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.telegram.org",
	}
}

// Notify sends the message to every configured chat, fire and forget.
func (t *Telegram) Notify(message string) {
	go func() {
		for _, chatID := range t.chatIDs {
			if err := t.send(chatID, message); err != nil {
				log.Printf("telegram notify chat %s: %v", chatID, err)
			}
		}
	}()
}

func (t *Telegram) send(chatID, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.httpClient.PostForm(endpoint, url.Values{
		"chat_id": {chatID},
		"text":    {message},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	return nil
}
