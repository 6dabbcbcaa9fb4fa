package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one outbound email with both representations of the body.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// Mailer is the primary notification channel capability.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGridMailer sends through the SendGrid v3 mail API.
type SendGridMailer struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSendGridMailer(apiKey string, timeout time.Duration) *SendGridMailer {
	return &SendGridMailer{
		apiKey:  apiKey,
		baseURL: sendGridBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// v3 mail/send payload shapes.
type emailAddress struct {
	Email string `json:"email"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []contentPart     `json:"content"`
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	req := sendGridRequest{
		Personalizations: []personalization{
			{To: []emailAddress{{Email: msg.To}}},
		},
		From:    emailAddress{Email: msg.From},
		Subject: msg.Subject,
		Content: []contentPart{
			{Type: "text/plain", Value: msg.Text},
			{Type: "text/html", Value: msg.HTML},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling mail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating mail request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// Read a little of the body for the error message (limit to 1KB)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
