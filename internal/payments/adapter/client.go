package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CardGatewayClient retrieves checkout sessions from the gateway API. Used by
// the client-initiated refresh poll, which needs the session's current state
// to feed through the same adapter path as a webhook delivery.
type CardGatewayClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewCardGatewayClient(baseURL, apiKey string) *CardGatewayClient {
	return &CardGatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// RetrieveSessionEvent fetches a checkout session and wraps it in a synthetic
// event envelope so CardGateway.Normalize applies unchanged. The envelope id
// is derived from the session, so the dedupe reference matches the webhook's.
func (c *CardGatewayClient) RetrieveSessionEvent(ctx context.Context, sessionID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway session retrieve: status %d", resp.StatusCode)
	}

	var session map[string]any
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("gateway session retrieve: %w", err)
	}

	envelope := map[string]any{
		"id":   "poll_" + sessionID,
		"type": sessionEventType(session),
		"data": map[string]any{"object": session},
	}
	return json.Marshal(envelope)
}

func sessionEventType(session map[string]any) string {
	ps, _ := session["payment_status"].(string)
	st, _ := session["status"].(string)
	switch {
	case ps == "paid":
		return evCheckoutCompleted
	case st == "expired":
		return evCheckoutExpired
	default:
		// leaves the adapter's default pending mapping
		return "checkout.session.pending"
	}
}
