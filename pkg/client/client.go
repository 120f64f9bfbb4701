// Package client talks to the guest-facing RSVP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	ErrNotFound       = errors.New("client: invitation not found")
	ErrDeviceMismatch = errors.New("client: invitation is bound to another device")
	ErrRSVPLocked     = errors.New("client: rsvp already submitted")
	ErrRateLimited    = errors.New("client: rate limited")
	ErrUnavailable    = errors.New("client: service unavailable")
)

// APIError is a failure reported by the server envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is maps server error codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == "INVITATION_NOT_FOUND"
	case ErrDeviceMismatch:
		return e.Code == "DEVICE_MISMATCH"
	case ErrRSVPLocked:
		return e.Code == "RSVP_LOCKED"
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// Invitation is the guest's view of their own record.
type Invitation struct {
	UniqueCode          string     `json:"unique_code"`
	Name                string     `json:"name"`
	Email               *string    `json:"email"`
	RSVPStatus          string     `json:"rsvp_status"`
	PlusOneCount        int        `json:"plus_one_count"`
	PlusOneName         *string    `json:"plus_one_name"`
	IsFamily            bool       `json:"is_family"`
	DietaryRestrictions *string    `json:"dietary_restrictions"`
	GuestQuestion       *string    `json:"guest_question"`
	Notes               *string    `json:"notes"`
	Claimed             bool       `json:"claimed"`
	RespondedAt         *time.Time `json:"responded_at"`
}

// RSVP is the answer submitted for an invitation.
type RSVP struct {
	DeviceID            string  `json:"device_id,omitempty"`
	Name                *string `json:"name,omitempty"`
	Status              string  `json:"rsvp_status"`
	PlusOneCount        int     `json:"plus_one_count"`
	PlusOneName         *string `json:"plus_one_name,omitempty"`
	Email               *string `json:"email,omitempty"`
	DietaryRestrictions *string `json:"dietary_restrictions,omitempty"`
	GuestQuestion       *string `json:"guest_question,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client calls the public invitation endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Claim binds code to deviceID. bound is false when the device already
// held the code.
func (c *Client) Claim(ctx context.Context, code, deviceID string) (inv *Invitation, bound bool, err error) {
	var out struct {
		Guest *Invitation `json:"guest"`
		Bound bool        `json:"bound"`
	}
	err = c.do(ctx, http.MethodPost, "/api/invitations/claim", map[string]string{
		"code":      code,
		"device_id": deviceID,
	}, &out)
	if err != nil {
		return nil, false, err
	}
	return out.Guest, out.Bound, nil
}

// ValidateDevice returns the invitation bound to deviceID, or nil.
func (c *Client) ValidateDevice(ctx context.Context, deviceID string) (*Invitation, error) {
	var out *Invitation
	if err := c.do(ctx, http.MethodPost, "/api/invitations/device", map[string]string{"device_id": deviceID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CodeForDevice returns the code bound to deviceID or "" when there is none.
func (c *Client) CodeForDevice(ctx context.Context, deviceID string) (string, error) {
	inv, err := c.ValidateDevice(ctx, deviceID)
	if err != nil || inv == nil {
		return "", err
	}
	return inv.UniqueCode, nil
}

// GetInvitation loads the invitation for code.
func (c *Client) GetInvitation(ctx context.Context, code string) (*Invitation, error) {
	var out Invitation
	if err := c.do(ctx, http.MethodGet, "/api/rsvp/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRSVP stores answer for code.
func (c *Client) SubmitRSVP(ctx context.Context, code string, answer RSVP) (*Invitation, error) {
	var out Invitation
	if err := c.do(ctx, http.MethodPost, "/api/rsvp/"+url.PathEscape(code), answer, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "INVALID_RESPONSE", Message: http.StatusText(resp.StatusCode)}
	}
	if !env.Success || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
