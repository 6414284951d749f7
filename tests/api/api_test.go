//go:build api

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bookingServiceURL = getEnv("BOOKING_SERVICE_URL", "http://localhost:8080")
	adminAPIKey       = os.Getenv("ADMIN_API_KEY")
)

// TestAPI_PublicFlow exercises the running service over HTTP.
func TestAPI_PublicFlow(t *testing.T) {
	waitForService(t)

	t.Run("Step1_Quote", func(t *testing.T) {
		t.Log(" STEP 1: Price a loan signing at the office")
		resp := post(t, "/api/v1/pricing/quote", map[string]any{
			"serviceType":   "LOAN_SIGNING",
			"locationType":  "OUR_OFFICE",
			"documentCount": 5,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var quote map[string]any
		decodeJSON(t, resp, &quote)
		t.Logf("    Total: %v, deposit: %v", quote["totalPrice"], quote["depositAmount"])
		assert.Equal(t, 160.0, quote["totalPrice"])
		assert.Equal(t, true, quote["depositRequired"])
		assert.Equal(t, 80.0, quote["depositAmount"])
	})

	t.Run("Step2_QuoteUnknownType", func(t *testing.T) {
		resp := post(t, "/api/v1/pricing/quote", map[string]any{"serviceType": "SKYWRITING"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.Equal(t, false, body["success"])
	})

	t.Run("Step3_ValidateUnknownPromo", func(t *testing.T) {
		resp := post(t, "/api/v1/promo-codes/validate", map[string]any{"code": "NOPE-" + fmt.Sprint(time.Now().Unix()), "subtotal": 100}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.Equal(t, false, body["valid"])
		assert.Equal(t, "not_found", body["reason"])
	})

	t.Run("Step4_BookUnknownService", func(t *testing.T) {
		resp := post(t, "/api/v1/bookings", map[string]any{
			"customerName":      "Jane Doe",
			"customerEmail":     "jane@example.com",
			"customerPhone":     "4095551234",
			"serviceId":         "svc-does-not-exist",
			"scheduledDateTime": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
			"locationType":      "OUR_OFFICE",
		}, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.Equal(t, "The selected service is not available", body["error"])
	})

	t.Run("Step5_BookInvalidRequest", func(t *testing.T) {
		resp := post(t, "/api/v1/bookings", map[string]any{"customerEmail": "not-an-email"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.NotEmpty(t, body["validationErrors"])
	})

	t.Run("Step6_StaffRoutesNeedKey", func(t *testing.T) {
		resp := get(t, "/api/v1/bookings", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		bookingID := "6f1c2b7a-3d4e-4f5a-8b9c-0d1e2f3a4b5c"
		resp = get(t, "/api/v1/bookings/"+bookingID, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = post(t, "/api/v1/admin/bookings/"+bookingID+"/cancel", map[string]any{"waiveFee": true}, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		if adminAPIKey == "" {
			t.Skip("ADMIN_API_KEY not set")
		}
		resp = get(t, "/api/v1/admin/promo-codes", http.Header{"X-Api-Key": {adminAPIKey}})
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Step7_WebhookWithoutSignature", func(t *testing.T) {
		resp := post(t, "/api/v1/webhooks/stripe", map[string]any{"id": "evt_1", "type": "payment_intent.succeeded"}, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Step8_Metrics", func(t *testing.T) {
		resp := get(t, "/metrics", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

// Helper functions

func waitForService(t *testing.T) {
	t.Log(" Waiting for the booking service to be ready...")

	for i := 0; i < 30; i++ {
		resp, err := http.Get(bookingServiceURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(1 * time.Second)
	}

	t.Fatal("Service did not become ready in time")
}

func get(t *testing.T, path string, header http.Header) *http.Response {
	req, err := http.NewRequest(http.MethodGet, bookingServiceURL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func post(t *testing.T, path string, body any, header http.Header) *http.Response {
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, bookingServiceURL+path, bytes.NewBuffer(jsonBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestMain - Setup and teardown
func TestMain(m *testing.M) {
	fmt.Println(" Starting API Tests against", bookingServiceURL)

	code := m.Run()

	fmt.Println(" API Tests Complete!")
	os.Exit(code)
}
