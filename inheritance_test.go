package oasvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestBuildInheritanceValidation(t *testing.T) {
	doc := loadFixture(t, "pets-allof-v2.yml").Swagger
	compiler := NewCompiler(gojsonschema.Draft4, nil)
	opts := NewDefaultOptions()

	t.Run("discriminated base", func(t *testing.T) {
		assert := require.New(t)
		validator, err := buildInheritanceValidation(compiler, doc, map[string]any{"$ref": "#/definitions/Pet"}, opts)
		assert.Nil(err)

		oneOf, ok := validator.(*OneOfValidator)
		assert.True(ok)
		assert.Equal("petType", oneOf.PropertyName)
		assert.Equal([]string{"Cat", "Dog"}, oneOf.Inheritance)

		valid, errs := validator.Validate(map[string]any{"petType": "Dog", "name": "Rex", "packSize": 2})
		assert.True(valid, "%v", errs)

		valid, errs = validator.Validate(map[string]any{"petType": "Dog", "name": "Rex"})
		assert.False(valid)
		assert.True(hasRecord(errs, "required", "missingProperty", "packSize"))

		valid, errs = validator.Validate(map[string]any{"petType": "Bird", "name": "Tweety"})
		assert.False(valid)
		assert.Len(errs, 1)
		assert.Equal([]string{"Cat", "Dog"}, errs[0].Params["allowedValues"])
	})

	t.Run("subtype without discriminator", func(t *testing.T) {
		validator, err := buildInheritanceValidation(compiler, doc, map[string]any{"$ref": "#/definitions/Dog"}, opts)
		require.Nil(t, err)
		assert.IsType(t, &SimpleValidator{}, validator)

		valid, _ := validator.Validate(map[string]any{"petType": "Dog", "name": "Rex", "packSize": -1})
		assert.False(t, valid)
	})

	t.Run("inline schema", func(t *testing.T) {
		validator, err := buildInheritanceValidation(compiler, doc, map[string]any{"type": "array"}, opts)
		require.Nil(t, err)

		valid, _ := validator.Validate([]any{})
		assert.True(t, valid)
		valid, _ = validator.Validate(map[string]any{})
		assert.False(t, valid)
	})
}

func TestExtends(t *testing.T) {
	def := map[string]any{
		"allOf": []any{
			map[string]any{"$ref": "#/definitions/Pet"},
			map[string]any{"type": "object"},
		},
	}
	assert.True(t, extends(def, "#/definitions/Pet"))
	assert.False(t, extends(def, "#/definitions/Cat"))
	assert.False(t, extends(map[string]any{}, "#/definitions/Pet"))
}
