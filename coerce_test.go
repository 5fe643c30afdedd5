package oasvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceParameter(t *testing.T) {
	integer := map[string]any{"type": TypeInteger}
	array := func(itemType string) map[string]any {
		return map[string]any{"type": TypeArray, "items": map[string]any{"type": itemType}}
	}
	explodeOff := false

	tests := []struct {
		name     string
		param    *Parameter
		value    any
		expected any
	}{
		{"integer", &Parameter{Schema: integer}, "12", int64(12)},
		{"integer not a number", &Parameter{Schema: integer}, "twelve", "twelve"},
		{"number", &Parameter{Schema: map[string]any{"type": TypeNumber}}, "1.5", 1.5},
		{"boolean", &Parameter{Schema: map[string]any{"type": TypeBoolean}}, "true", true},
		{"boolean spelled out only", &Parameter{Schema: map[string]any{"type": TypeBoolean}}, "1", "1"},
		{"nullable integer", &Parameter{Schema: map[string]any{"type": []any{TypeInteger, TypeNull}}}, "3", int64(3)},
		{"string", &Parameter{Schema: map[string]any{"type": TypeString}}, "12", "12"},
		{"single repeated value", &Parameter{Schema: integer}, []string{"7"}, int64(7)},
		{"csv", &Parameter{CollectionFormat: "csv", Schema: array(TypeInteger)}, "1, 2,3", []any{int64(1), int64(2), int64(3)}},
		{"pipes", &Parameter{CollectionFormat: "pipes", Schema: array(TypeString)}, "a|b", []any{"a", "b"}},
		{"ssv", &Parameter{CollectionFormat: "ssv", Schema: array(TypeString)}, "a b", []any{"a", "b"}},
		{"tsv", &Parameter{CollectionFormat: "tsv", Schema: array(TypeString)}, "a\tb", []any{"a", "b"}},
		{"multi", &Parameter{CollectionFormat: "multi", Schema: array(TypeString)}, []string{"a", "b"}, []any{"a", "b"}},
		{"form exploded", &Parameter{Style: "form", Schema: array(TypeString)}, "a,b", []any{"a,b"}},
		{"form not exploded", &Parameter{Style: "form", Explode: &explodeOff, Schema: array(TypeString)}, "a,b", []any{"a", "b"}},
		{"simple", &Parameter{Style: "simple", Schema: array(TypeBoolean)}, "true,false", []any{true, false}},
		{"space delimited", &Parameter{Style: "spaceDelimited", Schema: array(TypeString)}, "a b", []any{"a", "b"}},
		{"pipe delimited", &Parameter{Style: "pipeDelimited", Schema: array(TypeString)}, "a|b", []any{"a", "b"}},
		{"empty array", &Parameter{Style: "simple", Schema: array(TypeString)}, "", []any{}},
		{"nil", &Parameter{Schema: integer}, nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, coerceParameter(tc.param, tc.value))
		})
	}
}

func TestSchemaType(t *testing.T) {
	assert.Equal(t, TypeString, schemaType(map[string]any{"type": TypeString}))
	assert.Equal(t, TypeInteger, schemaType(map[string]any{"type": []any{TypeNull, TypeInteger}}))
	assert.Equal(t, TypeArray, schemaType(map[string]any{"type": []string{TypeArray}}))
	assert.Equal(t, "", schemaType(nil))
}
