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
)

const (
	defaultBaseURL = "https://api.resend.com"
	fromAddress    = "team@clauselens.org"
)

// Client implements Sender against the provider's JSON REST API.
type Client struct {
	apiKey    string
	baseURL   string
	clientURL string
	http      *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the provider endpoint. Used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient constructs a provider client. clientURL is the web frontend base
// used to build dashboard and accept-invite links.
func NewClient(apiKey, clientURL string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("notify: api key is required")
	}
	c := &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *Client) SendEnterpriseWelcome(ctx context.Context, to, userName, orgName string) error {
	return c.send(ctx, emailRequest{
		From:    fromAddress,
		To:      []string{to},
		Subject: fmt.Sprintf("Your Enterprise Workspace for %s is Ready", orgName),
		HTML:    welcomeHTML(userName, orgName, c.clientURL+"/dashboard"),
	})
}

func (c *Client) SendEnterpriseInvite(ctx context.Context, to, orgName, inviterName, token, role string) error {
	acceptLink := fmt.Sprintf("%s/accept-invite?token=%s", c.clientURL, token)
	return c.send(ctx, emailRequest{
		From:    fromAddress,
		To:      []string{to},
		Subject: fmt.Sprintf("You've been invited to join %s", orgName),
		HTML:    inviteHTML(orgName, inviterName, role, acceptLink),
	})
}

func (c *Client) SendPremiumConfirmation(ctx context.Context, to, userName string) error {
	return c.send(ctx, emailRequest{
		From:    fromAddress,
		To:      []string{to},
		Subject: "Welcome to Premium Contract Analysis",
		HTML:    premiumHTML(userName, c.clientURL+"/dashboard"),
	})
}

func (c *Client) send(ctx context.Context, email emailRequest) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("notify: provider responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
