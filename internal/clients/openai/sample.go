package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	sdkoption "github.com/openai/openai-go/option"
)

const sampleValuesPrompt = `You generate realistic sample values for the fields of a test persona used to exercise a clinical phone agent. Respond with a single JSON object mapping each requested field name to a plausible string value. Do not include any fields that were not requested.`

// SampleValues asks the model for plausible persona values for the given
// instruction fields. Returns a field-to-value map covering the request.
func SampleValues(ctx context.Context, apiKey string, fields []string) (map[string]string, error) {
	var payload strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&payload, "- %s\n", field)
	}

	client := sdk.NewClient(sdkoption.WithAPIKey(apiKey))
	resp, err := client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model: sdk.ChatModelGPT4oMini,
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(sampleValuesPrompt),
			sdk.UserMessage(payload.String()),
		},
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate sample values: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("sample values response had no choices")
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &values); err != nil {
		return nil, fmt.Errorf("failed to parse sample values: %w", err)
	}
	return values, nil
}
