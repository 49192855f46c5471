package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"reminder-engine/internal/config"
	"reminder-engine/internal/domain/reminder"
	"reminder-engine/internal/pkg/apperrors"
)

// Sender is the messaging transport the engine dispatches through. The
// gateway behind it owns pairing, session state and reconnection; this
// module only needs to know whether a session is up and to post text.
type Sender interface {
	IsAvailable(ctx context.Context) bool
	SendText(ctx context.Context, to, text string) (string, error)
}

// Client talks to a WhatsApp gateway sidecar over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Sender = (*Client)(nil)

func NewClient(cfg config.GatewayConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "WhatsAppClient"),
	}
}

type statusResponse struct {
	Connected bool `json:"connected"`
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type sendResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"id"`
	Msg       string `json:"msg"`
}

// IsAvailable reports whether the gateway has an active session. Any
// transport error counts as unavailable; the caller skips the run and the
// next interval retries.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Gateway status check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "Gateway status check returned non-OK", "status", resp.StatusCode)
		return false
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		c.logger.WarnContext(ctx, "Gateway status response malformed", "error", err)
		return false
	}
	return status.Connected
}

// SendText delivers one text message and returns the gateway's message id.
// The destination may be a bare phone number or a JID; it is normalized
// before the call and rejected when unusable.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	jid := reminder.NormalizeJID(to)
	if jid == "" {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidPhoneNumber, to)
	}

	body, err := json.Marshal(sendRequest{To: jid, Message: text})
	if err != nil {
		return "", fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", apperrors.ErrTransportUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway send failed: status %d: %s", resp.StatusCode, payload)
	}

	var sent sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		return "", fmt.Errorf("gateway send response malformed: %w", err)
	}
	if !sent.OK {
		return "", fmt.Errorf("gateway rejected message: %s", sent.Msg)
	}
	return sent.MessageID, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
