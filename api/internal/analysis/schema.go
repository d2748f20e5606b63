package analysis

import "encoding/json"

type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInteger FieldKind = "integer"
)

// Field describes one property of the declared response schema.
type Field struct {
	Name string
	Kind FieldKind
	Enum []string
}

// Fields is the response schema in declaration order. Every field is required.
var Fields = []Field{
	{Name: "signal", Kind: KindString, Enum: []string{string(SignalCall), string(SignalPut), string(SignalNeutral)}},
	{Name: "signalType", Kind: KindString, Enum: []string{string(SignalTypeNonMTG), string(SignalTypeMTG1Step), string(SignalTypeNA)}},
	{Name: "confidence", Kind: KindInteger},
	{Name: "trend", Kind: KindString, Enum: []string{string(TrendUp), string(TrendDown), string(TrendSideways)}},
	{Name: "support", Kind: KindString},
	{Name: "resistance", Kind: KindString},
	{Name: "logic", Kind: KindString},
	{Name: "previousCandlePower", Kind: KindString},
	{Name: "pair", Kind: KindString},
	{Name: "timeframe", Kind: KindString},
	{Name: "mtgInstruction", Kind: KindString},
}

func RequiredFields() []string {
	out := make([]string, 0, len(Fields))
	for _, f := range Fields {
		out = append(out, f.Name)
	}
	return out
}

func fieldEnum(name string) []string {
	for _, f := range Fields {
		if f.Name == name {
			return f.Enum
		}
	}
	return nil
}

// JSONSchema returns the response schema as a JSON Schema object, strict
// enough for OpenAI structured outputs (no additional properties).
func JSONSchema() map[string]any {
	props := make(map[string]any, len(Fields))
	for _, f := range Fields {
		p := map[string]any{"type": string(f.Kind)}
		if len(f.Enum) > 0 {
			p["enum"] = append([]string(nil), f.Enum...)
		}
		props[f.Name] = p
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             RequiredFields(),
		"additionalProperties": false,
	}
}

// JSONSchemaRaw returns JSONSchema encoded as JSON.
func JSONSchemaRaw() json.RawMessage {
	b, _ := json.Marshal(JSONSchema())
	return b
}
