package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pateli18/clinicontact/internal/transport"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

const productionBaseURL = "https://api.clinicontact.com"

// BaseURL selects the backend host from the environment: production when
// CLINICONTACT_ENV=production, the local server otherwise.
func BaseURL() string {
	if os.Getenv("CLINICONTACT_ENV") == "production" {
		return productionBaseURL
	}
	return "http://localhost:8080"
}

// Client is the typed surface over the backend API.
type Client struct {
	transport *transport.Client
}

func New(baseURL, authToken string) *Client {
	return &Client{
		transport: transport.NewClient(baseURL, authToken),
	}
}

// CreateBrowserSession mints an ephemeral realtime credential for a
// browser call.
func (c *Client) CreateBrowserSession(ctx context.Context, agentID uuid.UUID, userInfo map[string]string) (types.SessionCredential, error) {
	var credential types.SessionCredential
	err := c.transport.PostJSON(ctx, "/api/v1/browser/create-session", map[string]interface{}{
		"agent_id":  agentID,
		"user_info": userInfo,
	}, &credential)
	if err != nil {
		return types.SessionCredential{}, fmt.Errorf("failed to create session: %w", err)
	}
	return credential, nil
}

// StoreBrowserSession archives a finished browser call's event log.
func (c *Client) StoreBrowserSession(ctx context.Context, sessionID string, data []json.RawMessage, userInfo map[string]string) error {
	return c.transport.PostJSON(ctx, "/api/v1/browser/store-session", map[string]interface{}{
		"session_id": sessionID,
		"data":       data,
		"user_info":  userInfo,
	}, nil)
}

// StartOutboundCall places a phone call and returns its id.
func (c *Client) StartOutboundCall(ctx context.Context, phoneNumber string, agentID uuid.UUID, userInfo map[string]string) (uuid.UUID, error) {
	var resp struct {
		PhoneCallID uuid.UUID `json:"phone_call_id"`
	}
	err := c.transport.PostJSON(ctx, "/api/v1/phone/outbound-call", map[string]interface{}{
		"phone_number": phoneNumber,
		"agent_id":     agentID,
		"user_info":    userInfo,
	}, &resp)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to place call: %w", err)
	}
	return resp.PhoneCallID, nil
}

// HangUp asks the backend to end an in-flight call.
func (c *Client) HangUp(ctx context.Context, phoneCallID uuid.UUID) error {
	return c.transport.PostJSON(ctx, "/api/v1/phone/hang-up/"+phoneCallID.String(), struct{}{}, nil)
}

// Transcript fetches the finalized transcript of a completed call.
func (c *Client) Transcript(ctx context.Context, phoneCallID uuid.UUID) (types.Transcript, error) {
	var transcript types.Transcript
	if err := c.transport.GetJSON(ctx, "/api/v1/phone/transcript/"+phoneCallID.String(), &transcript); err != nil {
		return types.Transcript{}, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	return transcript, nil
}

// ListCalls returns the metadata listing of all calls.
func (c *Client) ListCalls(ctx context.Context) ([]types.PhoneCallMetadata, error) {
	var calls []types.PhoneCallMetadata
	if err := c.transport.GetJSON(ctx, "/api/v1/phone/all", &calls); err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, nil
}

// StreamAudioURL is the live audio endpoint for an in-flight call.
func (c *Client) StreamAudioURL(phoneCallID uuid.UUID) string {
	return c.transport.BaseURL() + "/api/v1/phone/stream-audio/" + phoneCallID.String()
}

// PlayAudioURL is the recorded audio endpoint for a completed call.
func (c *Client) PlayAudioURL(phoneCallID uuid.UUID) string {
	return c.transport.BaseURL() + "/api/v1/phone/play-audio/" + phoneCallID.String()
}

// ListAgents returns every agent version.
func (c *Client) ListAgents(ctx context.Context) ([]types.Agent, error) {
	var agents []types.Agent
	if err := c.transport.GetJSON(ctx, "/api/v1/agent/all", &agents); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// NewAgent creates an agent with a default first version.
func (c *Client) NewAgent(ctx context.Context, name string) (types.Agent, error) {
	var agent types.Agent
	err := c.transport.PostJSON(ctx, "/api/v1/agent/new-agent", map[string]string{"name": name}, &agent)
	if err != nil {
		return types.Agent{}, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

// NewAgentVersion appends a version to an agent's chain.
func (c *Client) NewAgentVersion(ctx context.Context, base types.AgentBase) (types.Agent, error) {
	var agent types.Agent
	if err := c.transport.PostJSON(ctx, "/api/v1/agent/new-version", base, &agent); err != nil {
		return types.Agent{}, fmt.Errorf("failed to save agent version: %w", err)
	}
	return agent, nil
}

// SampleDetails generates sample values for a set of instruction fields.
func (c *Client) SampleDetails(ctx context.Context, fields []string) (map[string]string, error) {
	var values map[string]string
	err := c.transport.PostJSON(ctx, "/api/v1/agent/sample-details", map[string][]string{"fields": fields}, &values)
	if err != nil {
		return nil, fmt.Errorf("failed to sample details: %w", err)
	}
	return values, nil
}

// SpeakerStream yields speaker turn changes for an in-flight call.
type SpeakerStream struct {
	body    io.ReadCloser
	scanner *transport.RecordScanner
}

// Next returns the next speaker event. Any error, including io.EOF, means
// the stream has ended.
func (s *SpeakerStream) Next() (types.SpeakerEvent, error) {
	record, err := s.scanner.Next()
	if err != nil {
		return types.SpeakerEvent{}, err
	}
	var event types.SpeakerEvent
	if err := json.Unmarshal(record, &event); err != nil {
		return types.SpeakerEvent{}, fmt.Errorf("failed to parse speaker event: %w", err)
	}
	return event, nil
}

func (s *SpeakerStream) Close() error {
	return s.body.Close()
}

// StreamSpeaker opens the speaker event stream for a call.
func (c *Client) StreamSpeaker(ctx context.Context, phoneCallID uuid.UUID) (*SpeakerStream, error) {
	body, err := c.transport.GetStream(ctx, "/api/v1/phone/stream-speaker/"+phoneCallID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open speaker stream: %w", err)
	}
	return &SpeakerStream{body: body, scanner: transport.NewRecordScanner(body)}, nil
}

// MetadataStream yields metadata updates for an in-flight call, ending
// with a call_end record.
type MetadataStream struct {
	body    io.ReadCloser
	scanner *transport.RecordScanner
}

func (s *MetadataStream) Next() (types.MetadataEvent, error) {
	record, err := s.scanner.Next()
	if err != nil {
		return types.MetadataEvent{}, err
	}
	var event types.MetadataEvent
	if err := json.Unmarshal(record, &event); err != nil {
		return types.MetadataEvent{}, fmt.Errorf("failed to parse metadata event: %w", err)
	}
	return event, nil
}

func (s *MetadataStream) Close() error {
	return s.body.Close()
}

// StreamMetadata opens the metadata stream for a call.
func (c *Client) StreamMetadata(ctx context.Context, phoneCallID uuid.UUID) (*MetadataStream, error) {
	body, err := c.transport.GetStream(ctx, "/api/v1/phone/stream-metadata/"+phoneCallID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata stream: %w", err)
	}
	return &MetadataStream{body: body, scanner: transport.NewRecordScanner(body)}, nil
}
