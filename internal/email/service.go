package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service handles email composition and sending
type Service struct {
	sender        Sender
	fromAddress   string
	fromName      string
	templateCache *template.Template
}

// NewService creates a new email service
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		sender:        sender,
		fromAddress:   fromAddress,
		fromName:      fromName,
		templateCache: tmpl,
	}, nil
}

// SendPaymentSuccess sends a donation receipt
func (s *Service) SendPaymentSuccess(ctx context.Context, data PaymentSuccessEmail) error {
	return s.send(ctx, data.Email, data)
}

// SendPaymentFailed tells the donor a recurring charge failed
func (s *Service) SendPaymentFailed(ctx context.Context, data PaymentFailedEmail) error {
	return s.send(ctx, data.Email, data)
}

// SendPaymentReminder warns the donor of an upcoming charge
func (s *Service) SendPaymentReminder(ctx context.Context, data PaymentReminderEmail) error {
	return s.send(ctx, data.Email, data)
}

// SendSubscriptionCancelled confirms the recurring donation has stopped
func (s *Service) SendSubscriptionCancelled(ctx context.Context, data SubscriptionCancelledEmail) error {
	return s.send(ctx, data.Email, data)
}

func (s *Service) send(ctx context.Context, to string, data EmailTemplate) error {
	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", data.TemplateName(), err)
	}

	msg := &Email{
		To:       []string{to},
		From:     fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress),
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", data.TemplateName(), err)
	}
	return nil
}

// renderTemplate executes the named template and derives a plain text
// alternative from the rendered HTML.
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	if s.templateCache.Lookup(templateName) == nil {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var buf bytes.Buffer
	if err := s.templateCache.ExecuteTemplate(&buf, templateName, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := buf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

// blockEndings are tags whose close marks a paragraph break in the plain
// text rendition.
var blockEndings = strings.NewReplacer(
	"<br>", "\n", "<br/>", "\n", "<br />", "\n",
	"</p>", "\n\n", "</div>", "\n",
	"</h1>", "\n\n", "</h2>", "\n\n", "</h3>", "\n\n",
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ", "&amp;", "&", "&lt;", "<",
	"&gt;", ">", "&quot;", `"`, "&#39;", "'",
)

// generatePlainText derives the text/plain part from rendered HTML. Our
// templates are simple enough that tag stripping beats carrying a real
// HTML-to-text dependency.
func generatePlainText(html string) string {
	text := blockEndings.Replace(html)

	// Strip remaining tags in one pass.
	var b strings.Builder
	b.Grow(len(text))
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	text = htmlEntities.Replace(b.String())

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
