package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/medical-records-api/internal/config"
)

// PushSender delivers push notifications to a device token.
type PushSender interface {
	SendPush(ctx context.Context, msg *PushMessage) error
}

// PushMessage is the payload sent to the Expo push gateway.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type pushRequest struct {
	To           string            `json:"to"`
	Notification pushNotification  `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Priority     string            `json:"priority"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

type client struct {
	url        string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) PushSender {
	return &client{
		url:        cfg.ExpoPushURL,
		httpClient: &http.Client{Timeout: cfg.ExpoPushTimeout},
	}
}

func (c *client) SendPush(ctx context.Context, msg *PushMessage) error {
	payload := pushRequest{
		To: msg.Token,
		Notification: pushNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Sound: "default",
			Badge: 1,
		},
		Data:     msg.Data,
		Priority: "high",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
