// Package profanity scores wiki notification text for vandalism using an
// external text-classification API, after scrubbing known false triggers.
package profanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Match intensities reported by the classifier, low to high.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

type Match struct {
	Match     string    `json:"match"`
	Intensity Intensity `json:"intensity"`
}

type checkResponse struct {
	Status    string `json:"status"`
	Profanity struct {
		Matches []Match `json:"matches"`
	} `json:"profanity"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client posts text to the remote check endpoint (sightengine-compatible:
// multipart form in, JSON out).
type Client struct {
	Endpoint  string
	APIUser   string
	APISecret string
	Client    *http.Client
}

func NewClient(endpoint, apiUser, apiSecret string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	client := retryClient.StandardClient()
	client.Timeout = 15 * time.Second
	return &Client{
		Endpoint:  endpoint,
		APIUser:   apiUser,
		APISecret: apiSecret,
		Client:    client,
	}
}

// Check submits text and returns the classifier's matches. An API-level
// failure status is returned as an error.
func (c *Client) Check(ctx context.Context, text string) ([]Match, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	fields := map[string]string{
		"text": text,
		"lang": "en",
		"mode": "standard",
	}
	if c.APIUser != "" {
		fields["api_user"] = c.APIUser
		fields["api_secret"] = c.APISecret
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profanity check failed: status=%d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding profanity check response: %w", err)
	}
	switch out.Status {
	case "success":
		return out.Profanity.Matches, nil
	case "failure":
		return nil, fmt.Errorf("profanity check failure: %s", out.Error.Message)
	default:
		return nil, fmt.Errorf("profanity check unknown status: %q", out.Status)
	}
}
