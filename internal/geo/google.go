package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notarypros/booking-service/pkg/logging"
)

const metersPerMile = 1609.344

// GoogleDistanceClient queries the Distance Matrix API for driving distance.
type GoogleDistanceClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

type GoogleOption func(*GoogleDistanceClient)

func WithGoogleBaseURL(u string) GoogleOption {
	return func(c *GoogleDistanceClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(c *GoogleDistanceClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewGoogleDistanceClient(apiKey string, logger *logging.Logger, opts ...GoogleOption) *GoogleDistanceClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &GoogleDistanceClient{
		apiKey:     apiKey,
		baseURL:    "https://maps.googleapis.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type distanceMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *GoogleDistanceClient) DrivingMiles(ctx context.Context, origin, destination string) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("geo: google maps api key not configured")
	}

	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("units", "imperial")
	q.Set("mode", "driving")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/maps/api/distancematrix/json?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("geo: distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("geo: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("geo: distance matrix status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed distanceMatrixResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("geo: decode response: %w", err)
	}
	if parsed.Status != "OK" {
		return 0, fmt.Errorf("geo: distance matrix %s: %s", parsed.Status, parsed.ErrorMessage)
	}
	if len(parsed.Rows) == 0 || len(parsed.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrAddressUnresolvable, destination)
	}
	el := parsed.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, fmt.Errorf("%w: %s (%s)", ErrAddressUnresolvable, destination, el.Status)
	}

	miles := el.Distance.Value / metersPerMile
	c.logger.Debug("distance resolved", "miles", miles)
	return miles, nil
}
