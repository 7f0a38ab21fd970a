// Package razorpay wraps the two gateway primitives the fulfillment core
// needs: creating a gateway order and verifying callback signatures.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.razorpay.com/v1"
	requestBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// Client calls the Razorpay Orders API with basic-auth credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the gateway client given API credentials.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	trimmedID := strings.TrimSpace(keyID)
	trimmedSecret := strings.TrimSpace(keySecret)
	if trimmedID == "" || trimmedSecret == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		keyID:      trimmedID,
		keySecret:  trimmedSecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// KeyID exposes the public key the storefront embeds in its payment widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// OrderRequest describes the payload sent to the orders API. Amount is in
// paise, per the gateway contract.
type OrderRequest struct {
	AmountPaise int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Order holds the mapped data returned by the orders API.
type Order struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// CreateOrder registers a pending charge with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = "INR"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order request")
	}

	url := fmt.Sprintf("%s/orders", strings.TrimRight(c.baseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "order request failed")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order response missing id")
	}

	return &order, nil
}

// VerifyPaymentSignature checks the checkout callback signature, which the
// gateway computes as hmac_sha256(order_id + "|" + payment_id, key_secret).
// The comparison is constant time.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if c == nil {
		return false
	}
	return verifyHMAC(gatewayOrderID+"|"+gatewayPaymentID, c.keySecret, signature)
}

// VerifyWebhookSignature checks the raw webhook body against the
// X-Razorpay-Signature header.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c == nil {
		return false
	}
	return verifyHMAC(string(payload), c.keySecret, signature)
}

func verifyHMAC(message, secret, presented string) bool {
	if secret == "" || presented == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(presented))
}
