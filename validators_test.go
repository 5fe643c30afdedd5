package oasvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestOneOfValidator(t *testing.T) {
	compiler := NewCompiler(gojsonschema.Draft7, nil)
	compile := func(required string) Validator {
		schema, err := compiler.Compile(map[string]any{"type": "object", "required": []any{required}})
		require.Nil(t, err)
		return NewSimpleValidator(schema)
	}

	validator := NewOneOfValidator("petType", []string{"Cat", "Dog"}, map[string]Validator{
		"Cat": compile("huntingSkill"),
		"Dog": compile("packSize"),
	})

	t.Run("dispatches on the property", func(t *testing.T) {
		ok, _ := validator.Validate(map[string]any{"petType": "Dog", "packSize": 1})
		assert.True(t, ok)

		ok, errs := validator.Validate(map[string]any{"petType": "Cat", "packSize": 1})
		assert.False(t, ok)
		assert.True(t, hasRecord(errs, "required", "missingProperty", "huntingSkill"))
	})

	t.Run("unknown value", func(t *testing.T) {
		assert := require.New(t)
		ok, errs := validator.Validate(map[string]any{"petType": "Fish"})
		assert.False(ok)
		assert.Len(errs, 1)
		assert.Equal("enum", errs[0].Keyword)
		assert.Equal(".petType", errs[0].DataPath)
		assert.Equal([]string{"Cat", "Dog"}, errs[0].Params["allowedValues"])
	})

	t.Run("non-string value", func(t *testing.T) {
		numbered := NewOneOfValidator("kind", []string{"1", "true"}, map[string]Validator{
			"1":    compile("a"),
			"true": compile("b"),
		})
		for _, kind := range []any{1, float64(1), true} {
			ok, errs := numbered.Validate(map[string]any{"kind": kind, "a": 1, "b": 1})
			assert.False(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, "enum", errs[0].Keyword)
			assert.Equal(t, []string{"1", "true"}, errs[0].Params["allowedValues"])
		}
	})

	t.Run("missing value", func(t *testing.T) {
		ok, errs := validator.Validate(map[string]any{})
		assert.False(t, ok)
		assert.Len(t, errs, 1)
	})
}

func TestDiscriminatorValue(t *testing.T) {
	value, ok := discriminatorValue(map[string]any{"kind": "a"}, "kind")
	assert.Equal(t, "a", value)
	assert.True(t, ok)

	_, ok = discriminatorValue(map[string]any{"kind": 12}, "kind")
	assert.False(t, ok)

	_, ok = discriminatorValue(map[string]any{"kind": true}, "kind")
	assert.False(t, ok)

	_, ok = discriminatorValue(map[string]any{"kind": nil}, "kind")
	assert.False(t, ok)

	_, ok = discriminatorValue("kind", "kind")
	assert.False(t, ok)
}
