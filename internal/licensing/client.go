// Package licensing is the thin client boundary to the third-party license
// API. Non-2xx responses, explicit ok:false, and missing keys are all
// treated as call failures.
package licensing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/application"
	"github.com/avirek21/Marketplace-Fulfillment-System/internal/fulfillment/domain"
)

type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(log *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type issueRequest struct {
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Product      string `json:"product"`
	Duration     int    `json:"duration"`
	DurationUnit string `json:"duration_unit"`
}

type renewRequest struct {
	LicenseKey   string `json:"license_key"`
	Duration     int    `json:"duration"`
	DurationUnit string `json:"duration_unit"`
	Reactivate   bool   `json:"reactivate"`
}

type licenseResponse struct {
	OK         bool   `json:"ok"`
	LicenseKey string `json:"license_key"`
	ExpiresAt  string `json:"expires_at"`
	Error      string `json:"error"`
}

func (c *Client) Issue(ctx context.Context, req application.LicenseIssue) (string, *time.Time, error) {
	resp, err := c.post(ctx, "/api/v1/licenses/issue", issueRequest{
		Name:         req.Name,
		Surname:      req.Surname,
		Phone:        req.Phone,
		Email:        req.Email,
		Product:      req.Product,
		Duration:     req.Duration,
		DurationUnit: string(req.Unit),
	})
	if err != nil {
		return "", nil, err
	}
	if resp.LicenseKey == "" {
		return "", nil, fmt.Errorf("license issue: no key returned (%s)", resp.Error)
	}
	expiresAt, err := parseExpiry(resp.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	return resp.LicenseKey, expiresAt, nil
}

func (c *Client) Renew(ctx context.Context, key string, duration int, unit domain.IntervalUnit) (*time.Time, error) {
	resp, err := c.post(ctx, "/api/v1/licenses/renew", renewRequest{
		LicenseKey:   key,
		Duration:     duration,
		DurationUnit: string(unit),
		Reactivate:   true,
	})
	if err != nil {
		return nil, err
	}
	return parseExpiry(resp.ExpiresAt)
}

func (c *Client) post(ctx context.Context, path string, payload any) (licenseResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return licenseResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return licenseResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return licenseResponse{}, fmt.Errorf("license service: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return licenseResponse{}, fmt.Errorf("license service: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return licenseResponse{}, fmt.Errorf("license service: status %d", httpResp.StatusCode)
	}

	var resp licenseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return licenseResponse{}, fmt.Errorf("license service: %w", err)
	}
	if !resp.OK {
		return licenseResponse{}, fmt.Errorf("license service: ok=false (%s)", resp.Error)
	}
	return resp, nil
}

func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("license service: bad expires_at %q: %w", s, err)
	}
	return &t, nil
}
