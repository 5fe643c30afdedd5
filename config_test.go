package oasvalidator

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptions(t *testing.T) {
	opts := NewDefaultOptions()
	assert.True(t, opts.BeautifyErrors)
	assert.False(t, opts.ContentTypeValidation)
	assert.Equal(t, DefaultRouteCacheSize, opts.RouteCacheSize)
	assert.Equal(t, "std", opts.Framework)
	assert.Equal(t, DefaultReloadDebounce, opts.ReloadDebounce)
}

func TestNewOptionsFromContent(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		assert := require.New(t)
		content := []byte(`
contentTypeValidation: true
expectFormFieldsInBody: true
makeOptionalAttributesNullable: true
firstError: true
routeCacheSize: 10
framework: chi
reloadDebounce: 150ms
`)
		opts, err := NewOptionsFromContent(content)
		assert.Nil(err)
		assert.True(opts.ContentTypeValidation)
		assert.True(opts.ExpectFormFieldsInBody)
		assert.True(opts.MakeOptionalAttributesNullable)
		assert.True(opts.FirstError)
		assert.True(opts.BeautifyErrors)
		assert.Equal(10, opts.RouteCacheSize)
		assert.Equal("chi", opts.Framework)
		assert.Equal(150*time.Millisecond, opts.ReloadDebounce)
	})

	t.Run("negative cache size disables cache", func(t *testing.T) {
		opts, err := NewOptionsFromContent([]byte("routeCacheSize: -5\n"))
		assert.Nil(t, err)
		assert.Equal(t, 0, opts.RouteCacheSize)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := NewOptionsFromContent([]byte("contentTypeValidation: [\n"))
		assert.Error(t, err)
	})
}

func TestLoadOptionsFromFile(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		filePath := filepath.Join(t.TempDir(), "validator.yml")
		err := os.WriteFile(filePath, []byte("allowUnknownQueryParameters: true\nbeautifyErrors: false\n"), 0o644)
		require.Nil(t, err)

		opts, err := LoadOptionsFromFile(filePath)
		assert.Nil(t, err)
		assert.True(t, opts.AllowUnknownQueryParameters)
		assert.False(t, opts.BeautifyErrors)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadOptionsFromFile(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}

func TestOptionSetters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	reg := prometheus.NewRegistry()

	opts := newOptions([]Option{
		WithContentTypeValidation(true),
		WithFormFieldsInBody(true),
		WithOptionalAttributesNullable(true),
		WithUnknownQueryParameters(true),
		WithSpecValidation(false),
		WithFirstError(true),
		WithBeautifyErrors(false),
		WithRouteCacheSize(-1),
		WithReloadDebounce(time.Second),
		WithReloadDebounce(-time.Second),
		WithFormat("even", func(value string) bool { return len(value)%2 == 0 }),
		WithLogger(logger),
		WithRegisterer(reg),
		nil,
	})

	assert.True(t, opts.ContentTypeValidation)
	assert.True(t, opts.ExpectFormFieldsInBody)
	assert.True(t, opts.MakeOptionalAttributesNullable)
	assert.True(t, opts.AllowUnknownQueryParameters)
	assert.True(t, opts.SkipSpecValidation)
	assert.True(t, opts.FirstError)
	assert.False(t, opts.BeautifyErrors)
	assert.Equal(t, 0, opts.RouteCacheSize)
	assert.Equal(t, time.Second, opts.ReloadDebounce)
	assert.Contains(t, opts.Formats, "even")
	assert.Equal(t, logger, opts.logger())
	assert.Equal(t, reg, opts.Registerer)

	t.Run("with options replaces", func(t *testing.T) {
		src := &Options{FirstError: true}
		res := newOptions([]Option{WithContentTypeValidation(true), WithOptions(src)})
		assert.False(t, res.ContentTypeValidation)
		assert.True(t, res.FirstError)
		assert.Equal(t, slog.Default(), res.logger())
	})
}

func TestLoadOptionsFromEnv(t *testing.T) {
	t.Run("process environment", func(t *testing.T) {
		t.Setenv("OASVALIDATOR_CONTENT_TYPE_VALIDATION", "true")
		t.Setenv("OASVALIDATOR_ROUTE_CACHE_SIZE", "-1")
		t.Setenv("CONTENT_TYPE_VALIDATION", "false")

		opts, err := LoadOptionsFromEnv()
		require.NoError(t, err)
		assert.True(t, opts.ContentTypeValidation)
		assert.Equal(t, 0, opts.RouteCacheSize)
		assert.True(t, opts.BeautifyErrors)
	})

	t.Run("dotenv file", func(t *testing.T) {
		assert := require.New(t)
		filePath := filepath.Join(t.TempDir(), ".env")
		content := "OASVALIDATOR_FRAMEWORK=mux\nOASVALIDATOR_FIRST_ERROR=false\n"
		assert.NoError(os.WriteFile(filePath, []byte(content), 0o644))
		t.Setenv("OASVALIDATOR_FIRST_ERROR", "true")

		opts, err := LoadOptionsFromEnv(filePath)
		assert.NoError(err)
		assert.Equal("mux", opts.Framework)
		assert.True(opts.FirstError)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("OASVALIDATOR_ROUTE_CACHE_SIZE", "many")
		_, err := LoadOptionsFromEnv()
		assert.Error(t, err)
	})

	t.Run("missing dotenv file", func(t *testing.T) {
		_, err := LoadOptionsFromEnv(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}
