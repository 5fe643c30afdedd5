package oasvalidator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestCompiler_Compile(t *testing.T) {
	compiler := NewCompiler(gojsonschema.Draft7, nil)

	t.Run("invalid schema", func(t *testing.T) {
		_, err := compiler.Compile(map[string]any{"type": 12})
		assert.ErrorIs(t, err, ErrInvalidSchema)
	})

	t.Run("records", func(t *testing.T) {
		assert := require.New(t)
		schema, err := compiler.Compile(map[string]any{
			"type":     "object",
			"required": []any{"name"},
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "minLength": 2},
				},
				"x-key": map[string]any{"type": "integer"},
			},
			"additionalProperties": false,
		})
		assert.Nil(err)

		ok, errs := schema.Validate(map[string]any{
			"tags":  []any{"ok", "n"},
			"x-key": "one",
			"other": true,
		})
		assert.False(ok)

		byKeyword := map[string]*ErrorRecord{}
		for _, rec := range errs {
			byKeyword[rec.Keyword] = rec
		}

		required := byKeyword["required"]
		assert.NotNil(required)
		assert.Equal("", required.DataPath)
		assert.Equal("#/required", required.SchemaPath)
		assert.Equal("name", required.Params["missingProperty"])

		minLength := byKeyword["minLength"]
		assert.NotNil(minLength)
		assert.Equal(".tags[1]", minLength.DataPath)
		assert.Equal("#/properties/tags/items/minLength", minLength.SchemaPath)

		typ := byKeyword["type"]
		assert.NotNil(typ)
		assert.Equal("['x-key']", typ.DataPath)

		additional := byKeyword["additionalProperties"]
		assert.NotNil(additional)
		assert.Equal("other", additional.Params["additionalProperty"])
	})

	t.Run("valid", func(t *testing.T) {
		schema, err := compiler.Compile(map[string]any{"type": "integer", "minimum": 1})
		require.Nil(t, err)

		ok, errs := schema.Validate(5)
		assert.True(t, ok)
		assert.Nil(t, errs)

		ok, errs = schema.Validate(0)
		assert.False(t, ok)
		assert.Equal(t, "minimum", errs[0].Keyword)
		assert.Equal(t, "#/minimum", errs[0].SchemaPath)
	})
}

func TestCompiler_Formats(t *testing.T) {
	compiler := NewCompiler(gojsonschema.Draft7, map[string]FormatFunc{
		"upper-case": func(value string) bool { return strings.ToUpper(value) == value },
	})

	t.Run("custom format", func(t *testing.T) {
		schema, err := compiler.Compile(map[string]any{"type": "string", "format": "upper-case"})
		require.Nil(t, err)

		ok, _ := schema.Validate("ABC")
		assert.True(t, ok)

		ok, errs := schema.Validate("abc")
		assert.False(t, ok)
		assert.Equal(t, "format", errs[0].Keyword)
	})

	t.Run("bridged format", func(t *testing.T) {
		schema, err := compiler.Compile(map[string]any{"type": "string", "format": "mac"})
		require.Nil(t, err)

		ok, _ := schema.Validate("01:23:45:67:89:ab")
		assert.True(t, ok)

		ok, _ = schema.Validate("not-a-mac")
		assert.False(t, ok)
	})

	t.Run("format ignores other types", func(t *testing.T) {
		assert.True(t, FormatFunc(func(string) bool { return false }).IsFormat(12))
	})
}

func TestCompiler_FormatsAreShared(t *testing.T) {
	first := NewCompiler(gojsonschema.Draft7, map[string]FormatFunc{
		"shared-even": func(value string) bool { return len(value)%2 == 0 },
	})
	schema, err := first.Compile(map[string]any{"type": "string", "format": "shared-even"})
	require.Nil(t, err)

	ok, _ := schema.Validate("abc")
	assert.False(t, ok)

	NewCompiler(gojsonschema.Draft7, map[string]FormatFunc{
		"shared-even": func(string) bool { return true },
	})
	ok, _ = schema.Validate("abc")
	assert.True(t, ok)
}

func TestDataPath(t *testing.T) {
	assert.Equal(t, "", dataPath(nil))
	assert.Equal(t, ".a.b[0]", dataPath([]string{"a", "b", "0"}))
	assert.Equal(t, ".headers['content-type']", dataPath([]string{"headers", "content-type"}))
	assert.Equal(t, `['it\'s']`, dataPath([]string{"it's"}))
}

func TestSchemaPath(t *testing.T) {
	assert.Equal(t, "#/type", schemaPath(nil, "type"))
	assert.Equal(t, "#/properties/a~1b/items/enum", schemaPath([]string{"a/b", "3"}, "enum"))
}
