package payments

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notarypros/booking-service/pkg/logging"
)

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "booking-123", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "10250", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "jane@example.com", r.PostForm.Get("receipt_email"))
		assert.Equal(t, "123", r.PostForm.Get("metadata[booking_id]"))
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method","amount":10250}`))
	}))
	defer srv.Close()

	c := NewStripeClient("sk_test", logging.Discard()).WithBaseURL(srv.URL)
	intent, err := c.CreatePaymentIntent(t.Context(), IntentParams{
		AmountCents:    10250,
		Currency:       "USD",
		CustomerRef:    "jane@example.com",
		Metadata:       map[string]string{"booking_id": "123"},
		IdempotencyKey: "booking-123",
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
}

func TestCreatePaymentIntent_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined.","type":"card_error"}}`))
	}))
	defer srv.Close()

	c := NewStripeClient("sk_test", logging.Discard()).WithBaseURL(srv.URL)
	_, err := c.CreatePaymentIntent(t.Context(), IntentParams{AmountCents: 100})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 402")
	assert.Contains(t, err.Error(), "card was declined")
}

func TestCreatePaymentIntent_RejectsZeroAmount(t *testing.T) {
	c := NewStripeClient("sk_test", logging.Discard())
	_, err := c.CreatePaymentIntent(t.Context(), IntentParams{AmountCents: 0})
	assert.Error(t, err)
}

func TestCreateRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_1", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "5000", r.PostForm.Get("amount"))
		_, _ = w.Write([]byte(`{"id":"re_1","status":"succeeded","amount":5000}`))
	}))
	defer srv.Close()

	c := NewStripeClient("sk_test", logging.Discard()).WithBaseURL(srv.URL)
	refund, err := c.CreateRefund(t.Context(), "pi_1", 5000, "refund-1")

	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(5000), refund.Amount)
}

func TestStripeClient_MissingKey(t *testing.T) {
	_, err := NewStripeClient("", logging.Discard()).CreateRefund(t.Context(), "pi_1", 0, "")
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{"id":"evt_1"}`)
	good := fmt.Sprintf("t=%d,v1=%s", now.Unix(), Sign("whsec", payload, now.Unix()))

	assert.True(t, VerifySignature("whsec", payload, good, now))
	assert.True(t, VerifySignature("whsec", payload, good, now.Add(299*time.Second)))
	assert.False(t, VerifySignature("whsec", payload, good, now.Add(301*time.Second)), "outside tolerance")
	assert.False(t, VerifySignature("other", payload, good, now), "wrong secret")
	assert.False(t, VerifySignature("whsec", []byte(`{"id":"evt_2"}`), good, now), "tampered payload")
	assert.False(t, VerifySignature("", payload, good, now), "no secret")
	assert.False(t, VerifySignature("whsec", payload, "garbage", now))
}

func TestParseEvent(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":7500,"metadata":{"booking_id":"b1"}}}}`)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), Sign("whsec", payload, now.Unix()))

	evt, err := ParseEvent("whsec", payload, header, now)

	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, evt.Type)
	assert.Equal(t, "pi_1", evt.Data.Object.ID)
	assert.Equal(t, "b1", evt.Data.Object.Metadata["booking_id"])

	_, err = ParseEvent("whsec", payload, "t=1,v1=deadbeef", now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
