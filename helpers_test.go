package oasvalidator

import (
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string, opts ...Option) *Document {
	t.Helper()
	doc, err := LoadDocumentFromFile(filepath.Join("test_fixtures", name), opts...)
	require.NoError(t, err)
	return doc
}

func newFixtureInstance(t *testing.T, name string, opts ...Option) *Instance {
	t.Helper()
	inst, err := NewFromFile(filepath.Join("test_fixtures", name), opts...)
	require.NoError(t, err)
	return inst
}

func buildFixtureBody(t *testing.T, name, path, method string, opts ...Option) *BodyValidator {
	t.Helper()
	doc := loadFixture(t, name)
	body, err := BuildBodyValidation(doc, path, method, newOptions(opts))
	require.NoError(t, err)
	require.NotNil(t, body)
	return body
}

func jsonValidator(t *testing.T, body *BodyValidator) Validator {
	t.Helper()
	content, ok := body.contents[MediaTypeJSON]
	require.True(t, ok)
	return content.validator
}

func createSchemaFromString(t *testing.T, src string) *openapi3.Schema {
	t.Helper()
	schema := &openapi3.Schema{}
	require.NoError(t, schema.UnmarshalJSON([]byte(src)))
	return schema
}

func hasRecord(records ErrorRecords, keyword, param string, value any) bool {
	for _, rec := range records {
		if rec.Keyword != keyword {
			continue
		}
		if param == "" || rec.Params[param] == value {
			return true
		}
	}
	return false
}
