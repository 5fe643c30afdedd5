package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cubahno/oasvalidator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		assert := require.New(t)
		r := httptest.NewRequest(http.MethodPost, "/v1/pets?limit=2&tags=a&tags=b", strings.NewReader(`{"name":"Rex","age":2}`))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")

		req, err := Extract(r, Std)
		assert.NoError(err)
		assert.Equal(http.MethodPost, req.Method)
		assert.Equal("/v1/pets", req.Path)
		assert.Equal("", req.RoutePath)
		assert.Equal([]string{"a", "b"}, req.Query["tags"])
		assert.Equal("application/json; charset=utf-8", req.ContentType)
		assert.Equal("22", req.Headers.Get("Content-Length"))
		assert.Equal(map[string]any{"name": "Rex", "age": float64(2)}, req.Body)

		body, err := io.ReadAll(r.Body)
		assert.NoError(err)
		assert.Equal(`{"name":"Rex","age":2}`, string(body))
	})

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/pets", strings.NewReader(`{"name":`))
		r.Header.Set("Content-Type", oasvalidator.MediaTypeJSON)
		_, err := Extract(r, Std)
		assert.ErrorIs(t, err, ErrInvalidBody)
	})

	t.Run("url encoded form", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v2/pets/form", strings.NewReader("name=Rex&tag=a&tag=b"))
		r.Header.Set("Content-Type", oasvalidator.MediaTypeForm)
		req, err := Extract(r, Std)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Rex", "tag": []any{"a", "b"}}, req.Body)
	})

	t.Run("multipart", func(t *testing.T) {
		assert := require.New(t)
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		assert.NoError(writer.WriteField("description", "cute"))
		for _, name := range []string{"thumbnails", "file"} {
			part, err := writer.CreateFormFile(name, name+".png")
			assert.NoError(err)
			_, err = part.Write([]byte("png"))
			assert.NoError(err)
		}
		assert.NoError(writer.Close())

		r := httptest.NewRequest(http.MethodPost, "/v1/pets/3/photo", buf)
		r.Header.Set("Content-Type", writer.FormDataContentType())
		req, err := Extract(r, Std)
		assert.NoError(err)
		assert.Equal(map[string]any{"description": "cute"}, req.Body)
		assert.Equal([]string{"file", "thumbnails"}, req.Files)
	})

	t.Run("other media types", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("hello"))
		r.Header.Set("Content-Type", "text/plain")
		req, err := Extract(r, Std)
		require.NoError(t, err)
		assert.Equal(t, "hello", req.Body)
	})

	t.Run("no body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/v1/pets", nil)
		req, err := Extract(r, Std)
		require.NoError(t, err)
		assert.Nil(t, req.Body)
		assert.Empty(t, req.Headers.Get("Content-Length"))
	})

	t.Run("chunked", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/pets", strings.NewReader("{}"))
		r.ContentLength = -1
		r.TransferEncoding = []string{"chunked"}
		r.Header.Set("Content-Type", oasvalidator.MediaTypeJSON)
		req, err := Extract(r, Std)
		require.NoError(t, err)
		assert.Equal(t, "chunked", req.Headers.Get("Transfer-Encoding"))
		assert.Equal(t, map[string]any{}, req.Body)
	})
}

func TestParseFramework(t *testing.T) {
	tests := map[string]Framework{
		"":            Std,
		"std":         Std,
		"net/http":    Std,
		"Chi":         Chi,
		" mux ":       GorillaMux,
		"gorilla/mux": GorillaMux,
	}
	for name, expected := range tests {
		t.Run(name, func(t *testing.T) {
			framework, err := ParseFramework(name)
			require.NoError(t, err)
			assert.Equal(t, expected, framework)
		})
	}

	_, err := ParseFramework("fiber")
	assert.ErrorIs(t, err, oasvalidator.ErrUnknownFramework)

	assert.Equal(t, "chi", Chi.String())
	assert.Equal(t, "mux", GorillaMux.String())
	assert.Equal(t, "std", Std.String())
}
