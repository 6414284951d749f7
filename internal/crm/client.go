// Package crm is a thin GoHighLevel contacts client. Every call is an upsert
// or a set, so retrying any of them is harmless.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/notarypros/booking-service/pkg/logging"
)

const apiVersion = "2021-07-28"

type Contact struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Source       string
	Tags         []string
	CustomFields map[string]string
}

type ContactRef struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type Client struct {
	apiKey     string
	locationID string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewClient(apiKey, locationID string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		apiKey:     apiKey,
		locationID: locationID,
		baseURL:    "https://services.leadconnectorhq.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the API base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

type customField struct {
	Key        string `json:"key"`
	FieldValue string `json:"field_value"`
}

func toCustomFields(fields map[string]string) []customField {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]customField, 0, len(keys))
	for _, k := range keys {
		out = append(out, customField{Key: k, FieldValue: fields[k]})
	}
	return out
}

type upsertRequest struct {
	LocationID   string        `json:"locationId"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Source       string        `json:"source,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []customField `json:"customFields,omitempty"`
}

type upsertResponse struct {
	New     bool `json:"new"`
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

// UpsertContact creates the contact or updates the one matching its email/phone.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (ContactRef, error) {
	body := upsertRequest{
		LocationID:   c.locationID,
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		Email:        contact.Email,
		Phone:        contact.Phone,
		Source:       contact.Source,
		Tags:         contact.Tags,
		CustomFields: toCustomFields(contact.CustomFields),
	}

	var resp upsertResponse
	if err := c.do(ctx, http.MethodPost, "/contacts/upsert", body, &resp); err != nil {
		return ContactRef{}, err
	}
	if resp.Contact.ID == "" {
		return ContactRef{}, fmt.Errorf("crm: upsert response missing contact id")
	}
	return ContactRef{ID: resp.Contact.ID, Created: resp.New}, nil
}

func (c *Client) AddTags(ctx context.Context, contactID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/contacts/"+url.PathEscape(contactID)+"/tags", map[string][]string{"tags": tags}, nil)
}

func (c *Client) UpdateCustomFields(ctx context.Context, contactID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	body := map[string][]customField{"customFields": toCustomFields(fields)}
	return c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(contactID), body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("crm: api key not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("crm: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("crm: %s %s status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}
