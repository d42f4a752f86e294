package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pateli18/clinicontact/internal/types"
)

const realtimeBaseURL = "https://api.openai.com/v1/realtime"

// realtimeModel must match the model the backend mints credentials for.
const realtimeModel = "gpt-4o-realtime-preview-2024-12-17"

// ExchangeSDP sends a local session description to the realtime speech
// endpoint, authenticated with an ephemeral credential, and returns the
// remote answer.
func ExchangeSDP(ctx context.Context, credential types.SessionCredential, offerSDP string) (string, error) {
	url := fmt.Sprintf("%s?model=%s", realtimeBaseURL, realtimeModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("failed to build SDP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential.Value)
	req.Header.Set("Content-Type", "application/sdp")

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("SDP exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read SDP answer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("SDP exchange returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
