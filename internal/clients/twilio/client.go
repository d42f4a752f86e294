package twilio

import (
	"context"
	"fmt"

	"github.com/pateli18/clinicontact/internal/observability"

	twilioclient "github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client places and ends calls through the carrier REST API.
type Client struct {
	api        *twilioclient.RestClient
	fromNumber string
	logger     *observability.Logger
}

func New(accountSID, authToken, fromNumber string, logger *observability.Logger) *Client {
	api := twilioclient.NewRestClientWithParams(twilioclient.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{
		api:        api,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

func (c *Client) FromNumber() string {
	return c.fromNumber
}

// PlaceCall starts an outbound call. The carrier fetches TwiML from
// answerURL when the callee picks up and posts lifecycle updates to
// statusCallbackURL.
func (c *Client) PlaceCall(ctx context.Context, toNumber, answerURL, statusCallbackURL string) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(c.fromNumber)
	params.SetUrl(answerURL)
	params.SetStatusCallback(statusCallbackURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})

	resp, err := c.api.Api.CreateCall(params)
	if err != nil {
		c.logger.Error(ctx, "failed to place outbound call", err)
		return "", fmt.Errorf("failed to place outbound call: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("carrier returned no call sid")
	}
	c.logger.Info(ctx, fmt.Sprintf("Placed outbound call %s", *resp.Sid))
	return *resp.Sid, nil
}

// EndCall asks the carrier to complete an in-flight call.
func (c *Client) EndCall(ctx context.Context, callSID string) error {
	params := &twilioapi.UpdateCallParams{}
	params.SetStatus("completed")

	if _, err := c.api.Api.UpdateCall(callSID, params); err != nil {
		c.logger.Error(ctx, "failed to end call", err)
		return fmt.Errorf("failed to end call %s: %w", callSID, err)
	}
	return nil
}
