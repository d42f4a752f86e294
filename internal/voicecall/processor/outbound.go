package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/clients/openai"
	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

// OutboundCallRequest is the payload for placing a call.
type OutboundCallRequest struct {
	PhoneNumber string            `json:"phone_number"`
	AgentID     uuid.UUID         `json:"agent_id"`
	UserInfo    map[string]string `json:"user_info"`
}

// BuildInstructions renders an agent's system message for one call:
// {field} placeholders are replaced with the call's input values, and a
// {user_info} placeholder expands to the full formatted list.
func BuildInstructions(systemMessage string, userInfo map[string]string) string {
	instructions := systemMessage
	for key, value := range userInfo {
		instructions = strings.ReplaceAll(instructions, "{"+key+"}", value)
	}
	return strings.ReplaceAll(instructions, "{user_info}", openai.FormatUserInfo(userInfo))
}

// StartOutboundCall validates the dial target, records the call, and asks
// the carrier to place it.
func (p *VoiceCallProcessor) StartOutboundCall(ctx context.Context, req OutboundCallRequest) (store.PhoneCall, error) {
	if err := types.ValidatePhoneNumber(req.PhoneNumber); err != nil {
		return store.PhoneCall{}, apierrors.New(400, apierrors.CodeInvalidInput, err.Error())
	}

	agent, err := p.store.GetAgent(ctx, req.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		return store.PhoneCall{}, apierrors.New(404, apierrors.CodeNotFound, "agent not found")
	}
	if err != nil {
		return store.PhoneCall{}, err
	}

	call, err := p.store.CreatePhoneCall(ctx, store.CreatePhoneCallParams{
		FromPhoneNumber: p.twilioClient.FromNumber(),
		ToPhoneNumber:   req.PhoneNumber,
		InputData:       req.UserInfo,
		AgentID:         agent.ID,
	})
	if err != nil {
		return store.PhoneCall{}, err
	}

	answerURL := fmt.Sprintf("https://%s/api/v1/phone/answer/%s", p.publicHost, call.ID)
	statusCallbackURL := fmt.Sprintf("https://%s/api/v1/phone/status-callback/%s", p.publicHost, call.ID)

	callSID, err := p.twilioClient.PlaceCall(ctx, req.PhoneNumber, answerURL, statusCallbackURL)
	if err != nil {
		return store.PhoneCall{}, apierrors.New(502, apierrors.CodeCallUnavailable, "failed to place outbound call")
	}
	if err := p.store.SetPhoneCallSID(ctx, call.ID, callSID); err != nil {
		return store.PhoneCall{}, err
	}
	call.CallSID.String = callSID
	call.CallSID.Valid = true
	return call, nil
}

// HangUp ends an in-flight call through the carrier.
func (p *VoiceCallProcessor) HangUp(ctx context.Context, phoneCallID uuid.UUID) error {
	call, err := p.store.GetPhoneCall(ctx, phoneCallID)
	if errors.Is(err, store.ErrNotFound) {
		return apierrors.New(404, apierrors.CodeNotFound, "phone call not found")
	}
	if err != nil {
		return err
	}
	if !call.CallSID.Valid {
		return apierrors.New(400, apierrors.CodeInvalidInput, "call has not been placed yet")
	}
	return p.twilioClient.EndCall(ctx, call.CallSID.String)
}

// MediaStreamURL is the websocket endpoint the carrier connects back to
// for a call's audio.
func (p *VoiceCallProcessor) MediaStreamURL(phoneCallID uuid.UUID) string {
	return fmt.Sprintf("wss://%s/api/v1/phone/media-stream?phone_call_id=%s", p.publicHost, phoneCallID)
}

// RecordStatusCallback persists one carrier lifecycle update.
func (p *VoiceCallProcessor) RecordStatusCallback(ctx context.Context, phoneCallID uuid.UUID, payload map[string]interface{}) error {
	return p.store.InsertPhoneCallEvent(ctx, phoneCallID, store.JSONB(payload))
}
