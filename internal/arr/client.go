package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v3"

// HTTPDoer describes the HTTP client used by the arr services.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared transport for one managed service instance.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
	pacer   *Pacer
}

// NewClient constructs a client for the service at baseURL. The timeout
// bounds every request so a hung service cannot stall a reconciliation pass.
func NewClient(baseURL, apiKey string, timeout time.Duration, pacer *Pacer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: timeout},
		pacer:   pacer,
	}
}

// NewClientWithDoer constructs a client around a caller-provided HTTP doer.
func NewClientWithDoer(baseURL, apiKey string, doer HTTPDoer, pacer *Pacer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    doer,
		pacer:   pacer,
	}
}

// SystemStatus reports service identity and version.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// QualityProfile is a classification tier defined by the service.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Status fetches the service's system status, confirming connectivity and
// credentials.
func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, "/system/status", &status); err != nil {
		return SystemStatus{}, err
	}
	return status, nil
}

// QualityProfiles lists the classification tiers the service defines.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.get(ctx, "/qualityprofile", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ResolveProfile maps a configured profile name to its ID, case-insensitively.
func ResolveProfile(profiles []QualityProfile, name string) (int64, bool) {
	for _, profile := range profiles {
		if strings.EqualFold(profile.Name, name) {
			return profile.ID, true
		}
	}
	return 0, false
}

// ProfileName returns the display name for a profile ID.
func ProfileName(profiles []QualityProfile, id int64) string {
	for _, profile := range profiles {
		if profile.ID == id {
			return profile.Name
		}
	}
	return fmt.Sprintf("profile %d", id)
}

func (c *Client) apiURL(path string) string {
	if !strings.HasPrefix(path, "/api/") {
		path = apiPrefix + path
	}
	return c.baseURL + path
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
