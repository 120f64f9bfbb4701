package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

const (
	defaultGraphBaseURL    = "https://graph.facebook.com"
	defaultGraphAPIVersion = "v17.0"
)

// CloudConfig configures the WhatsApp Business Cloud API sender.
type CloudConfig struct {
	AccessToken        string
	PhoneNumberID      string
	BaseURL            string
	APIVersion         string
	DefaultCountryCode string
	Timeout            time.Duration
}

// CloudChannel sends text messages through the WhatsApp Cloud API.
type CloudChannel struct {
	cfg    CloudConfig
	client *http.Client
}

// NewCloudChannel validates cfg and returns a channel.
func NewCloudChannel(cfg CloudConfig, client *http.Client) (*CloudChannel, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" || strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp cloud: access token and phone number id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGraphBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultGraphAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &CloudChannel{cfg: cfg, client: client}, nil
}

func (c *CloudChannel) Name() string { return "whatsapp_cloud" }

type cloudTextMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             cloudText `json:"text"`
}

type cloudText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type cloudErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *CloudChannel) Send(ctx context.Context, guest *models.Guest, message string) error {
	to := NormalizePhone(guest.PhoneNumber, c.cfg.DefaultCountryCode)
	if to == "" {
		return ErrNoAddress
	}

	payload, err := json.Marshal(cloudTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             cloudText{Body: message},
	})
	if err != nil {
		return fmt.Errorf("whatsapp cloud: encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.APIVersion, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp cloud: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp cloud: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr cloudErrorBody
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("whatsapp cloud: status %d: %s (code %d)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Code)
	}
	return fmt.Errorf("whatsapp cloud: status %d", resp.StatusCode)
}
