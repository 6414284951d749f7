package crm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notarypros/booking-service/pkg/logging"
)

func TestUpsertContact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/contacts/upsert", r.URL.Path)
		assert.Equal(t, "Bearer ghl-key", r.Header.Get("Authorization"))
		assert.Equal(t, apiVersion, r.Header.Get("Version"))

		var body upsertRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "loc-1", body.LocationID)
		assert.Equal(t, "jane@example.com", body.Email)
		assert.Equal(t, []customField{{Key: "cf_booking_id", FieldValue: "b-1"}, {Key: "cf_service_type", FieldValue: "LOAN_SIGNING"}}, body.CustomFields)

		_, _ = w.Write([]byte(`{"new":true,"contact":{"id":"c-42"}}`))
	}))
	defer srv.Close()

	c := NewClient("ghl-key", "loc-1", logging.Discard()).WithBaseURL(srv.URL)
	ref, err := c.UpsertContact(t.Context(), Contact{
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@example.com",
		CustomFields: map[string]string{"cf_service_type": "LOAN_SIGNING", "cf_booking_id": "b-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, ContactRef{ID: "c-42", Created: true}, ref)
}

func TestAddTagsAndCustomFields(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("ghl-key", "loc-1", logging.Discard()).WithBaseURL(srv.URL)
	require.NoError(t, c.AddTags(t.Context(), "c-42", []string{"status:booking_created"}))
	require.NoError(t, c.UpdateCustomFields(t.Context(), "c-42", map[string]string{"cf_booking_status": "CONFIRMED"}))
	require.NoError(t, c.AddTags(t.Context(), "c-42", nil))

	assert.Equal(t, []string{"POST /contacts/c-42/tags", "PUT /contacts/c-42"}, paths)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid email"}`))
	}))
	defer srv.Close()

	c := NewClient("ghl-key", "loc-1", logging.Discard()).WithBaseURL(srv.URL)
	_, err := c.UpsertContact(t.Context(), Contact{Email: "bad"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestClient_MissingKey(t *testing.T) {
	_, err := NewClient("", "loc-1", logging.Discard()).UpsertContact(t.Context(), Contact{})
	assert.Error(t, err)
}
