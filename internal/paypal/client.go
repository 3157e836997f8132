package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrNotConfigured = errors.New("paypal: client credentials are not set")

const StatusCompleted = "COMPLETED"

// APIError is a non-2xx answer from the Orders API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient authenticates with OAuth2 client credentials against
// baseURL/v1/oauth2/token. The token is cached and refreshed by the
// returned client.
func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	if clientID == "" || clientSecret == "" {
		return &Client{baseURL: baseURL}
	}

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	httpClient := cfg.Client(ctx)
	httpClient.Timeout = timeout
	return &Client{baseURL: baseURL, http: httpClient}
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Capture keeps the raw provider document alongside the fields we read.
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  *struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				Amount Amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`

	Raw json.RawMessage `json:"-"`
}

// CapturedAmount returns the first capture's amount value, or "".
func (c *Capture) CapturedAmount() string {
	if len(c.PurchaseUnits) == 0 || len(c.PurchaseUnits[0].Payments.Captures) == 0 {
		return ""
	}
	return c.PurchaseUnits[0].Payments.Captures[0].Amount.Value
}

func (c *Capture) PayerEmail() string {
	if c.Payer == nil {
		return ""
	}
	return c.Payer.EmailAddress
}

func (c *Client) CreateOrder(ctx context.Context, value, currency, description string) (*Order, error) {
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      Amount{CurrencyCode: currency, Value: value},
			Description: description,
		}},
	}

	var order Order
	if _, err := c.do(ctx, "/v2/checkout/orders", body, &order, "Failed to create PayPal order"); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var capture Capture
	raw, err := c.do(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil, &capture, "Failed to capture PayPal order")
	if err != nil {
		return nil, err
	}
	capture.Raw = raw
	return &capture, nil
}

func (c *Client) do(ctx context.Context, path string, in, out any, fallbackMsg string) (json.RawMessage, error) {
	if c.http == nil {
		return nil, ErrNotConfigured
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("paypal read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Message == "" {
			e.Message = fallbackMsg
		}
		return nil, &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("paypal decode %s: %w", path, err)
	}
	return raw, nil
}
