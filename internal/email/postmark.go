package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const postmarkEndpoint = "https://api.postmarkapp.com/email"

// PostmarkSender delivers mail through the Postmark transactional API.
// Selected with EMAIL_PROVIDER=postmark; the default is direct SMTP.
type PostmarkSender struct {
	apiKey string
	client *http.Client
}

// NewPostmarkSender creates a sender authenticated by the server API token.
func NewPostmarkSender(apiKey string) *PostmarkSender {
	return &PostmarkSender{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// postmarkMessage mirrors Postmark's email payload. Field names follow
// their API casing.
type postmarkMessage struct {
	From        string               `json:"From"`
	To          string               `json:"To"`
	Subject     string               `json:"Subject"`
	HtmlBody    string               `json:"HtmlBody,omitempty"`
	TextBody    string               `json:"TextBody,omitempty"`
	Headers     []postmarkHeader     `json:"Headers,omitempty"`
	Attachments []postmarkAttachment `json:"Attachments,omitempty"`
}

type postmarkHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type postmarkAttachment struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type postmarkResult struct {
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Send delivers one email and returns Postmark's message id.
func (p *PostmarkSender) Send(ctx context.Context, email *Email) (string, error) {
	msg := postmarkMessage{
		From:     email.From,
		To:       strings.Join(email.To, ","),
		Subject:  email.Subject,
		HtmlBody: email.HTMLBody,
		TextBody: email.TextBody,
	}
	for name, value := range email.Headers {
		msg.Headers = append(msg.Headers, postmarkHeader{Name: name, Value: value})
	}
	for _, att := range email.Attachments {
		msg.Attachments = append(msg.Attachments, postmarkAttachment{
			Name:        att.Filename,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("postmark: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("postmark: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("postmark: send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("postmark: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("postmark: status %d: %s", resp.StatusCode, body)
	}

	var result postmarkResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("postmark: parse response: %w", err)
	}
	if result.ErrorCode != 0 {
		return "", fmt.Errorf("postmark: error %d: %s", result.ErrorCode, result.Message)
	}
	return result.MessageID, nil
}

// SendTemplate is not supported; donor emails are rendered locally and
// delivered through Send.
func (p *PostmarkSender) SendTemplate(ctx context.Context, templateID string, to []string, data map[string]interface{}) (string, error) {
	return "", ErrNotImplemented
}
