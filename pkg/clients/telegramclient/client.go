package telegramclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the public Bot API endpoint
const DefaultAPIURL = "https://api.telegram.org"

// Client sends messages through the Telegram Bot API
type Client struct {
	apiURL   string
	botToken string
	client   *http.Client
}

// NewClient creates a Bot API client. An empty apiURL uses DefaultAPIURL.
func NewClient(apiURL, botToken string) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Client{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: botToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts a Markdown message to chatID
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.botToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// The URL embeds the token, so don't surface it
		return fmt.Errorf("telegram request failed: %w", redact(err, c.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected message: %s", result.Description)
	}

	return nil
}

func redact(err error, token string) error {
	msg := strings.ReplaceAll(err.Error(), token, "<token>")
	return fmt.Errorf("%s", msg)
}
