// Package payments talks to Stripe over its form-encoded REST API.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/notarypros/booking-service/pkg/logging"
)

// IntentParams describes a PaymentIntent to create.
type IntentParams struct {
	AmountCents int64
	Currency    string
	CustomerRef string
	Metadata    map[string]string
	// IdempotencyKey makes a retried create return the original intent.
	IdempotencyKey string
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// StripeClient creates PaymentIntents and Refunds.
type StripeClient struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewStripeClient(secretKey string, logger *logging.Logger) *StripeClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

func (s *StripeClient) CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error) {
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("payments: amount must be positive, got %d", params.AmountCents)
	}
	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	if strings.Contains(params.CustomerRef, "@") {
		form.Set("receipt_email", params.CustomerRef)
	}
	if params.CustomerRef != "" {
		form.Set("metadata[customer_ref]", params.CustomerRef)
	}
	keys := make([]string, 0, len(params.Metadata))
	for k := range params.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", params.Metadata[k])
	}

	var intent Intent
	if err := s.post(ctx, "/v1/payment_intents", form, params.IdempotencyKey, &intent); err != nil {
		return nil, err
	}
	if intent.ClientSecret == "" {
		return nil, fmt.Errorf("payments: stripe response missing client secret")
	}
	s.logger.Info("stripe payment intent created", "intent_id", intent.ID, "amount_cents", params.AmountCents)
	return &intent, nil
}

// CreateRefund refunds amountCents of a captured PaymentIntent. Zero refunds
// the remaining balance.
func (s *StripeClient) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	if amountCents > 0 {
		form.Set("amount", strconv.FormatInt(amountCents, 10))
	}

	var refund Refund
	if err := s.post(ctx, "/v1/refunds", form, idempotencyKey, &refund); err != nil {
		return nil, err
	}
	s.logger.Info("stripe refund created", "refund_id", refund.ID, "intent_id", paymentIntentID, "amount_cents", refund.Amount)
	return &refund, nil
}

func (s *StripeClient) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any) error {
	if s.secretKey == "" {
		return fmt.Errorf("payments: stripe secret key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, readStripeError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func readStripeError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "unknown error"
	}
	var parsed stripeErrorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(data))
}
