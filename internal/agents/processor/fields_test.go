package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFieldsOrderedAndDeduped(t *testing.T) {
	message := "Call {name} at {phone}. Confirm {name}'s appointment on {date}."

	assert.Equal(t, []string{"name", "phone", "date"}, ExtractFields(message))
}

func TestExtractFieldsIgnoresReservedAndMalformed(t *testing.T) {
	assert.Empty(t, ExtractFields("Details:\n{user_info}"))
	assert.Empty(t, ExtractFields("no placeholders here"))
	assert.Empty(t, ExtractFields("{} and { spaced } are not fields"))
}

func TestMergeSampleValuesPreservesExisting(t *testing.T) {
	fields := []string{"name", "phone", "date"}
	existing := map[string]string{"name": "Ada", "dropped": "stale"}
	sampled := map[string]string{"phone": "+15551234567", "date": "2026-09-01"}

	merged := MergeSampleValues(fields, existing, sampled)

	assert.Equal(t, map[string]string{
		"name":  "Ada",
		"phone": "+15551234567",
		"date":  "2026-09-01",
	}, merged)
}

func TestMergeSampleValuesSkipsUnsampledFields(t *testing.T) {
	merged := MergeSampleValues([]string{"name"}, nil, nil)
	assert.Empty(t, merged)
}
