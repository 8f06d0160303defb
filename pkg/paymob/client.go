package paymob

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

	"github.com/merakiwear/meraki-backend/pkg/config"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
)

const (
	authPath       = "/api/auth/tokens"
	orderPath      = "/api/ecommerce/orders"
	paymentKeyPath = "/api/acceptance/payment_keys"
	iframePath     = "/api/acceptance/iframes"

	// Payment keys expire after an hour per gateway contract.
	paymentKeyExpirySeconds = 3600
)

var (
	errAPIKeyRequired        = errors.New("paymob api key is required")
	errIntegrationIDRequired = errors.New("paymob integration id is required")
	errHMACSecretRequired    = errors.New("paymob hmac secret is required")
	errLoggerRequired        = errors.New("paymob logger is required")
)

// Client exposes the Paymob Accept primitives with centralized logging and
// error mapping. Paymob ships no Go SDK, so the wrapper speaks the REST API
// directly.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	integrationID int
	iframeID      string
	hmacSecret    string
	currency      string
	logger        *logger.Logger
}

// NewClient initializes the Paymob wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaymobConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if cfg.IntegrationID <= 0 {
		return nil, errIntegrationIDRequired
	}
	hmacSecret := strings.TrimSpace(cfg.HMACSecret)
	if hmacSecret == "" {
		return nil, errHMACSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        apiKey,
		integrationID: cfg.IntegrationID,
		iframeID:      strings.TrimSpace(cfg.IframeID),
		hmacSecret:    hmacSecret,
		currency:      strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		logger:        logg,
	}
	if c.currency == "" {
		c.currency = "EGP"
	}

	logg.Info(ctx, "paymob client initialized")
	return c, nil
}

// Currency reports the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// Authenticate exchanges the API key for a short-lived auth token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.log(ctx, "request", "authenticate", nil)

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, authPath, map[string]any{"api_key": c.apiKey}, &resp); err != nil {
		c.log(ctx, "error", "authenticate", map[string]any{"error": err.Error()})
		return "", err
	}
	if resp.Token == "" {
		err := pkgerrors.New(pkgerrors.CodeDependency, "paymob auth returned empty token")
		c.log(ctx, "error", "authenticate", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "authenticate", nil)
	return resp.Token, nil
}

// CreateOrder registers the order with the gateway and returns its id.
func (c *Client) CreateOrder(ctx context.Context, authToken, merchantOrderID string, amountCents int64, items []OrderItemParams) (int64, error) {
	c.log(ctx, "request", "create_order", map[string]any{
		"merchant_order_id": merchantOrderID,
		"amount_cents":      amountCents,
		"items":             len(items),
	})

	wireItems := make([]map[string]any, 0, len(items))
	for _, item := range items {
		wireItems = append(wireItems, map[string]any{
			"name":         item.Name,
			"amount_cents": item.AmountCents,
			"description":  item.Description,
			"quantity":     item.Quantity,
		})
	}

	body := map[string]any{
		"auth_token":        authToken,
		"delivery_needed":   false,
		"amount_cents":      amountCents,
		"currency":          c.currency,
		"merchant_order_id": merchantOrderID,
		"items":             wireItems,
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, orderPath, body, &resp); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return 0, err
	}
	if resp.ID == 0 {
		err := pkgerrors.New(pkgerrors.CodeDependency, "paymob order returned empty id")
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return 0, err
	}

	c.log(ctx, "response", "create_order", map[string]any{"gateway_order_id": resp.ID})
	return resp.ID, nil
}

// CreatePaymentKey mints the iframe payment token for a gateway order.
func (c *Client) CreatePaymentKey(ctx context.Context, authToken string, gatewayOrderID, amountCents int64, billing BillingData) (string, error) {
	c.log(ctx, "request", "create_payment_key", map[string]any{
		"gateway_order_id": gatewayOrderID,
		"amount_cents":     amountCents,
	})

	body := map[string]any{
		"auth_token":     authToken,
		"amount_cents":   amountCents,
		"expiration":     paymentKeyExpirySeconds,
		"order_id":       gatewayOrderID,
		"billing_data":   billing.Normalize(),
		"currency":       c.currency,
		"integration_id": c.integrationID,
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, paymentKeyPath, body, &resp); err != nil {
		c.log(ctx, "error", "create_payment_key", map[string]any{"error": err.Error()})
		return "", err
	}
	if resp.Token == "" {
		err := pkgerrors.New(pkgerrors.CodeDependency, "paymob payment key returned empty token")
		c.log(ctx, "error", "create_payment_key", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "create_payment_key", nil)
	return resp.Token, nil
}

// CreatePayment runs the full three-step handshake and returns the session.
func (c *Client) CreatePayment(ctx context.Context, params CreatePaymentParams) (*PaymentSession, error) {
	authToken, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	gatewayOrderID, err := c.CreateOrder(ctx, authToken, params.MerchantOrderID, params.AmountCents, params.Items)
	if err != nil {
		return nil, err
	}

	paymentToken, err := c.CreatePaymentKey(ctx, authToken, gatewayOrderID, params.AmountCents, params.Billing)
	if err != nil {
		return nil, err
	}

	return &PaymentSession{
		GatewayOrderID: gatewayOrderID,
		PaymentToken:   paymentToken,
		IframeURL:      c.IframeURL(paymentToken),
	}, nil
}

// IframeURL builds the hosted checkout URL for a payment token.
func (c *Client) IframeURL(paymentToken string) string {
	return fmt.Sprintf("%s%s/%s?payment_token=%s", c.baseURL, iframePath, c.iframeID, paymentToken)
}

// VerifySignature checks the webhook HMAC over the raw request body.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.hmacSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paymob request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paymob request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paymob")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paymob response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(domainCodeForStatus(resp.StatusCode),
			fmt.Sprintf("paymob %s returned status %d", path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paymob response")
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paymob %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paymob %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "key", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
