package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAPIURL — endpoint SendGrid v3 mail/send.
const DefaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

const defaultHTTPTimeout = 30 * time.Second

// ErrHTTPDelivery — провайдер отклонил письмо.
var ErrHTTPDelivery = errors.New("mail API rejected message")

// HTTPConfig — параметры HTTP API провайдера.
type HTTPConfig struct {
	URL    string // default: DefaultAPIURL
	APIKey string
	From   string

	// Client — HTTP клиент (default: с таймаутом 30s).
	Client *http.Client
}

// HTTP отправляет письма через HTTP API в формате SendGrid v3.
type HTTP struct {
	url    string
	apiKey string
	from   string
	client *http.Client
	logger *slog.Logger
}

// NewHTTP создаёт HTTP notifier.
func NewHTTP(cfg HTTPConfig, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	url := cfg.URL
	if url == "" {
		url = DefaultAPIURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTP{
		url:    url,
		apiKey: cfg.APIKey,
		from:   cfg.From,
		client: client,
		logger: logger,
	}
}

type mailAddress struct {
	Email string `json:"email"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// Send отправляет HTML-письмо. Любой ответ, кроме 2xx, — ошибка доставки.
func (h *HTTP) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}

	payload, err := json.Marshal(mailRequest{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: h.from},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/html", Value: body}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send via mail API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrHTTPDelivery, resp.StatusCode, truncate(string(respBody), 200))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	h.logger.Debug("email sent", "to", to, "subject", subject, "status", resp.StatusCode)
	return nil
}

// truncate обрезает строку до maxLen байт.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
