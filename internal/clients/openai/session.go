package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pateli18/clinicontact/internal/types"
)

const realtimeSessionsURL = "https://api.openai.com/v1/realtime/sessions"

// CreateEphemeralSession mints a short-lived realtime credential that a
// client can use to negotiate its own peer connection with the speech
// endpoint, without ever seeing the API key.
func CreateEphemeralSession(ctx context.Context, httpClient *http.Client, apiKey string, instructions string) (types.SessionCredential, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":        RealtimeModel,
		"voice":        "shimmer",
		"instructions": instructions,
	})
	if err != nil {
		return types.SessionCredential{}, fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, realtimeSessionsURL, bytes.NewReader(payload))
	if err != nil {
		return types.SessionCredential{}, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return types.SessionCredential{}, fmt.Errorf("failed to create realtime session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.SessionCredential{}, fmt.Errorf("realtime session request failed with status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		ID           string `json:"id"`
		ClientSecret struct {
			Value     string `json:"value"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.SessionCredential{}, fmt.Errorf("failed to decode session response: %w", err)
	}

	return types.SessionCredential{
		ID:        parsed.ID,
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: parsed.ClientSecret.ExpiresAt,
	}, nil
}
