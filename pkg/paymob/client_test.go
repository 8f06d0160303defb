package paymob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/config"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

func hmacHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "paymob-test", Output: io.Discard})
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), config.PaymobConfig{
		BaseURL:       baseURL,
		APIKey:        "test-api-key",
		IntegrationID: 42,
		IframeID:      "778899",
		HMACSecret:    "hmac-secret",
		Currency:      "EGP",
	}, testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCreatePaymentHandshake(t *testing.T) {
	var sawAuth, sawOrder, sawKey bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)

		switch r.URL.Path {
		case authPath:
			sawAuth = true
			if payload["api_key"] != "test-api-key" {
				t.Errorf("auth request missing api key")
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "auth-token"})
		case orderPath:
			sawOrder = true
			if payload["auth_token"] != "auth-token" {
				t.Errorf("order request missing auth token")
			}
			if payload["merchant_order_id"] != "order-123" {
				t.Errorf("unexpected merchant order id %v", payload["merchant_order_id"])
			}
			if payload["amount_cents"] != float64(84000) {
				t.Errorf("unexpected amount %v", payload["amount_cents"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 991122})
		case paymentKeyPath:
			sawKey = true
			if payload["order_id"] != float64(991122) {
				t.Errorf("payment key missing gateway order id")
			}
			if payload["expiration"] != float64(3600) {
				t.Errorf("unexpected expiration %v", payload["expiration"])
			}
			if payload["integration_id"] != float64(42) {
				t.Errorf("unexpected integration id %v", payload["integration_id"])
			}
			billing, _ := payload["billing_data"].(map[string]any)
			if billing["apartment"] != "NA" {
				t.Errorf("empty billing fields should be sent as NA, got %v", billing["apartment"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "payment-token"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	session, err := c.CreatePayment(context.Background(), CreatePaymentParams{
		MerchantOrderID: "order-123",
		AmountCents:     84000,
		Items: []OrderItemParams{
			{Name: "Linen Shirt", AmountCents: 84000, Quantity: 1},
		},
		Billing: BillingData{
			FirstName:   "Nour",
			LastName:    "Hassan",
			Email:       "nour@example.com",
			PhoneNumber: "+201000000000",
			Street:      "12 Tahrir St",
			City:        "Cairo",
			Country:     "EG",
		},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if !sawAuth || !sawOrder || !sawKey {
		t.Fatalf("handshake incomplete: auth=%v order=%v key=%v", sawAuth, sawOrder, sawKey)
	}
	if session.GatewayOrderID != 991122 {
		t.Errorf("unexpected gateway order id %d", session.GatewayOrderID)
	}
	if session.PaymentToken != "payment-token" {
		t.Errorf("unexpected payment token %q", session.PaymentToken)
	}
	wantURL := srv.URL + "/api/acceptance/iframes/778899?payment_token=payment-token"
	if session.IframeURL != wantURL {
		t.Errorf("iframe url mismatch\n got %q\nwant %q", session.IframeURL, wantURL)
	}
}

func TestCreatePaymentStopsOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != authPath {
			t.Errorf("no further calls expected after auth failure, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.CreatePayment(context.Background(), CreatePaymentParams{
		MerchantOrderID: "order-1",
		AmountCents:     1000,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr.Code() != pkgerrors.CodeUnauthorized {
		t.Errorf("expected unauthorized code, got %s", domainErr.Code())
	}
}

func TestVerifySignature(t *testing.T) {
	c := testClient(t, "https://accept.paymob.com")
	body := []byte(`{"order":{"id":991122},"success":true}`)

	if !c.VerifySignature(body, hmacHex("hmac-secret", body)) {
		t.Errorf("expected valid signature to verify")
	}
	if c.VerifySignature(body, "deadbeef") {
		t.Errorf("expected mismatched signature to fail")
	}
	if c.VerifySignature(body, "") {
		t.Errorf("expected empty signature to fail")
	}
}

func TestToCents(t *testing.T) {
	cases := map[string]int64{
		"840":    84000,
		"840.50": 84050,
		"0":      0,
		"19.99":  1999,
	}
	for in, want := range cases {
		amount, err := decimal.NewFromString(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := ToCents(amount); got != want {
			t.Errorf("ToCents(%s) = %d, want %d", in, got, want)
		}
	}
}
