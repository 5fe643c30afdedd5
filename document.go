package oasvalidator

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/invopop/yaml"
)

const (
	VersionSwagger2 = "2.0"
	VersionOpenAPI3 = "3"
)

// Document is a loaded API contract.
// Exactly one of OpenAPI and Swagger is set.
type Document struct {
	Version string
	OpenAPI *openapi3.T
	Swagger *SwaggerDocument
}

// IsSwagger2 reports whether the document is a Swagger 2.0 one.
func (d *Document) IsSwagger2() bool {
	return d.Swagger != nil
}

type versionProbe struct {
	Swagger string `json:"swagger"`
	OpenAPI string `json:"openapi"`
}

// LoadDocumentFromFile loads an OpenAPI 3 or Swagger 2 document, YAML or JSON.
// OpenAPI 3 references to other files are resolved relative to filePath.
func LoadDocumentFromFile(filePath string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return loadDocument(data, filePath, newOptions(opts))
}

// LoadDocumentFromData loads a document from its content.
func LoadDocumentFromData(data []byte, opts ...Option) (*Document, error) {
	return loadDocument(data, "", newOptions(opts))
}

func loadDocument(data []byte, filePath string, opts *Options) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptySpec
	}

	probe := versionProbe{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch {
	case probe.Swagger == VersionSwagger2:
		swagger, err := newSwaggerDocument(data)
		if err != nil {
			return nil, err
		}
		if len(swagger.Paths) == 0 {
			return nil, ErrNoPathsInSpec
		}
		return &Document{Version: VersionSwagger2, Swagger: swagger}, nil

	case strings.HasPrefix(probe.OpenAPI, VersionOpenAPI3+"."):
		doc, err := loadOpenAPI3(data, filePath, opts)
		if err != nil {
			return nil, err
		}
		return &Document{Version: probe.OpenAPI, OpenAPI: doc}, nil
	}

	version := probe.Swagger
	if version == "" {
		version = probe.OpenAPI
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSpecVersion, version)
}

func loadOpenAPI3(data []byte, filePath string, opts *Options) (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	var (
		doc *openapi3.T
		err error
	)
	if filePath != "" {
		loader.IsExternalRefsAllowed = true
		// the default reader caches files by URI for the whole process, reloads must see edits
		loader.ReadFromURIFunc = openapi3.ReadFromURIs(openapi3.ReadFromHTTP(http.DefaultClient), openapi3.ReadFromFile)
		doc, err = loader.LoadFromDataWithPath(data, &url.URL{Path: filepath.ToSlash(filePath)})
	} else {
		doc, err = loader.LoadFromData(data)
	}
	if err != nil {
		return nil, err
	}

	if len(doc.Paths) == 0 {
		return nil, ErrNoPathsInSpec
	}

	if !opts.SkipSpecValidation {
		if err = doc.Validate(loader.Context); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
	}
	return doc, nil
}

// BasePaths returns the path prefixes routes are served under, at least one.
// Swagger 2 uses basePath, OpenAPI 3 the path part of every server URL.
func (d *Document) BasePaths() []string {
	var res []string
	if d.Swagger != nil {
		res = append(res, normalizeBasePath(d.Swagger.BasePath))
	}
	if d.OpenAPI != nil {
		for _, server := range d.OpenAPI.Servers {
			if server == nil {
				continue
			}
			res = append(res, normalizeBasePath(serverPath(server.URL)))
		}
	}
	if len(res) == 0 {
		return []string{""}
	}

	seen := make(map[string]bool, len(res))
	unique := res[:0]
	for _, base := range res {
		if !seen[base] {
			seen[base] = true
			unique = append(unique, base)
		}
	}
	sort.Strings(unique)
	return unique
}

// serverPath extracts the path of an absolute or relative server URL.
// Server variables in the path are kept as they are.
func serverPath(raw string) string {
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err == nil {
			return u.Path
		}
		rest := raw[strings.Index(raw, "://")+3:]
		if i := strings.Index(rest, "/"); i >= 0 {
			return rest[i:]
		}
		return ""
	}
	return raw
}

func normalizeBasePath(base string) string {
	base = strings.TrimSpace(base)
	base = strings.TrimRight(base, "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}
