package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldType - declared data type of a dynamic attribute.
type FieldType string

const (
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeString  FieldType = "string"
	FieldTypeEnum    FieldType = "enum"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeNumber, FieldTypeBoolean, FieldTypeString, FieldTypeEnum:
		return true
	}
	return false
}

// FieldValue is a tagged union over the supported attribute types.
// Only the member matching Type is meaningful.
type FieldValue struct {
	Type   FieldType
	Number float64
	Bool   bool
	Text   string
}

func NumberValue(v float64) FieldValue { return FieldValue{Type: FieldTypeNumber, Number: v} }
func BoolValue(v bool) FieldValue      { return FieldValue{Type: FieldTypeBoolean, Bool: v} }
func StringValue(v string) FieldValue  { return FieldValue{Type: FieldTypeString, Text: v} }
func EnumValue(v string) FieldValue    { return FieldValue{Type: FieldTypeEnum, Text: v} }

func (v FieldValue) String() string {
	switch v.Type {
	case FieldTypeNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case FieldTypeBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// fieldValueJSON is the wire/storage shape: {"type": "number", "value": 3}
type fieldValueJSON struct {
	Type  FieldType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	var raw interface{}
	switch v.Type {
	case FieldTypeNumber:
		raw = v.Number
	case FieldTypeBoolean:
		raw = v.Bool
	case FieldTypeString, FieldTypeEnum:
		raw = v.Text
	default:
		return nil, fmt.Errorf("unknown field type %q", v.Type)
	}
	value, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldValueJSON{Type: v.Type, Value: value})
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var wire fieldValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := FieldValue{Type: wire.Type}
	var err error
	switch wire.Type {
	case FieldTypeNumber:
		err = json.Unmarshal(wire.Value, &out.Number)
	case FieldTypeBoolean:
		err = json.Unmarshal(wire.Value, &out.Bool)
	case FieldTypeString, FieldTypeEnum:
		err = json.Unmarshal(wire.Value, &out.Text)
	default:
		return fmt.Errorf("unknown field type %q", wire.Type)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", wire.Type, err)
	}

	*v = out
	return nil
}
