package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/pateli18/clinicontact/internal/types"
)

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for JSONB")
	}

	// Handle empty or null JSON
	if len(bytes) == 0 || string(bytes) == "null" {
		*j = make(JSONB)
		return nil
	}

	result := make(JSONB)
	err := json.Unmarshal(bytes, &result)
	if err != nil {
		return err
	}
	*j = result
	return nil
}

// StringMap stores a flat string-to-string JSONB object, used for persona
// input data and agent sample values.
type StringMap map[string]string

// Value implements the driver.Valuer interface for StringMap
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for StringMap
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for StringMap")
	}

	if len(bytes) == 0 || string(bytes) == "null" {
		*m = make(StringMap)
		return nil
	}

	result := make(StringMap)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

// SpeakerSegments stores finalized speaker segments as a JSONB array.
type SpeakerSegments []types.SpeakerSegment

// Value implements the driver.Valuer interface for SpeakerSegments
func (s SpeakerSegments) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]types.SpeakerSegment{})
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for SpeakerSegments
func (s *SpeakerSegments) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for SpeakerSegments")
	}

	if len(bytes) == 0 || string(bytes) == "null" {
		*s = SpeakerSegments{}
		return nil
	}

	var result SpeakerSegments
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*s = result
	return nil
}

// RawJSONArray stores an ordered array of arbitrary JSON records. Order is
// preserved exactly as appended by the caller.
type RawJSONArray []json.RawMessage

// Value implements the driver.Valuer interface for RawJSONArray
func (a RawJSONArray) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]json.RawMessage{})
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for RawJSONArray
func (a *RawJSONArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for RawJSONArray")
	}

	if len(bytes) == 0 || string(bytes) == "null" {
		*a = RawJSONArray{}
		return nil
	}

	var result RawJSONArray
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*a = result
	return nil
}
