package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"physician_credential_tracker/internal/domain/delivery"
)

// ResendSender delivers notifications through the Resend transactional email
// HTTP API.
type ResendSender struct {
	apiKey string
	apiURL string
	from   string
	client *http.Client
}

func NewResendSender(apiKey, apiURL, from string) *ResendSender {
	return &ResendSender{
		apiKey: apiKey,
		apiURL: apiURL,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (s *ResendSender) Send(ctx context.Context, msg delivery.Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("no email address on file for physician %s", msg.PhysicianID)
	}

	payload := emailRequest{
		From:    s.from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Text:    msg.Body,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResponse map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorResponse)
		return fmt.Errorf("failed to send email, status code: %d, error: %v", resp.StatusCode, errorResponse)
	}
	return nil
}
