package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClientCreateOrderRequest(t *testing.T) {
	const expectedURL = "http://gateway.test/v1/orders"
	respBody := `{"id":"order_abc123","amount":28250,"currency":"INR","receipt":"KC-20250101-AB12CD","status":"created"}`

	var capturedURL string
	var capturedAuthUser string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuthUser, _, _ = req.BasicAuth()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["amount"] != float64(28250) {
			t.Fatalf("unexpected amount %v", payload["amount"])
		}
		if payload["currency"] != "INR" {
			t.Fatalf("unexpected currency %v", payload["currency"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	httpClient := &http.Client{Transport: rt}
	client, err := NewClient("key_test", "secret_test", WithBaseURL("http://gateway.test/v1"), WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	order, err := client.CreateOrder(context.Background(), OrderRequest{
		AmountPaise: 28250,
		Receipt:     "KC-20250101-AB12CD",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuthUser != "key_test" {
		t.Fatalf("basic auth user missing")
	}
	if order.ID != "order_abc123" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestClientCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client, err := NewClient("key_test", "secret_test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.CreateOrder(context.Background(), OrderRequest{AmountPaise: 0}); err == nil {
		t.Fatal("expected zero amount to be rejected")
	}
}

func TestClientCreateOrderSurfacesGatewayFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader(`{"error":"down"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("key_test", "secret_test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.CreateOrder(context.Background(), OrderRequest{AmountPaise: 100}); err == nil {
		t.Fatal("expected gateway error to surface")
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	client, err := NewClient("key_test", "secret_test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	mac := hmac.New(sha256.New, []byte("secret_test"))
	mac.Write([]byte("order_abc|pay_def"))
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyPaymentSignature("order_abc", "pay_def", valid) {
		t.Fatal("expected valid signature to pass")
	}
	if client.VerifyPaymentSignature("order_abc", "pay_def", "deadbeef") {
		t.Fatal("expected forged signature to fail")
	}
	if client.VerifyPaymentSignature("order_other", "pay_def", valid) {
		t.Fatal("expected signature for another order to fail")
	}
	if client.VerifyPaymentSignature("order_abc", "pay_def", "") {
		t.Fatal("expected empty signature to fail")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client, err := NewClient("key_test", "secret_test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	body := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte("secret_test"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyWebhookSignature(body, valid) {
		t.Fatal("expected valid webhook signature to pass")
	}
	if client.VerifyWebhookSignature([]byte(`{"event":"tampered"}`), valid) {
		t.Fatal("expected tampered body to fail")
	}
}
