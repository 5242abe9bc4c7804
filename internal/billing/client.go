package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Client implements Gateway against the processor's form-encoded REST API.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
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

// NewClient constructs an authenticated processor client.
func NewClient(secretKey string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("billing: secret key is required")
	}
	c := &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var customer Customer
	if err := c.post(ctx, "/customers", form, &customer); err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", params.Mode)
	form.Set("payment_method_types[0]", "card")
	if params.CustomerID != "" {
		form.Set("customer", params.CustomerID)
	}
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for i, item := range params.LineItems {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		if item.PriceID != "" {
			form.Set(prefix+"[price]", item.PriceID)
		} else {
			form.Set(prefix+"[price_data][currency]", item.Currency)
			form.Set(prefix+"[price_data][product_data][name]", item.ProductName)
			form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		form.Set(prefix+"[quantity]", strconv.FormatInt(qty, 10))
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	if err := c.post(ctx, "/checkout/sessions", form, &session); err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, body)
	}
	return json.Unmarshal(body, dst)
}

func apiError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("gateway responded %d: %s", status, payload.Error.Message)
	}
	return fmt.Errorf("gateway responded %d", status)
}
