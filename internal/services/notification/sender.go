package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPSender posts to the mail gateway's /sendmail/ endpoint.
type HTTPSender struct {
	baseURL string
	token   string
	from    string
	timeout time.Duration
}

func NewHTTPSender(baseURL, token, from string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{baseURL: baseURL, token: token, from: from, timeout: timeout}
}

type sendMailRequest struct {
	Sender        string `json:"sender"`
	Subject       string `json:"subject"`
	Recipient     string `json:"recipient"`
	Message       string `json:"message"`
	Name          string `json:"name"`
	CopyRecipient string `json:"copyrecipient"`
}

func (s *HTTPSender) Deliver(ctx context.Context, email Email) error {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout == 0 {
			timeout = remaining
		}
	}

	name := email.Name
	if name == "" {
		name = email.To
	}

	agent := fiber.Post(s.baseURL + "/sendmail/")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	agent.JSON(sendMailRequest{
		Sender:    s.from,
		Subject:   email.Subject,
		Recipient: email.To,
		Message:   email.Message,
		Name:      name,
	})
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("send mail request: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("mail gateway returned %d: %s", code, truncate(body, 200))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}

// LogSender only logs. It is used when no mail gateway is configured.
type LogSender struct{}

func (LogSender) Deliver(_ context.Context, email Email) error {
	slog.Info("email (not sent, no gateway configured)",
		"module", "notification",
		"to", email.To,
		"subject", email.Subject,
	)
	return nil
}
