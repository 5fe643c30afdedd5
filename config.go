package oasvalidator

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/prometheus/client_golang/prometheus"
)

// EnvPrefix prefixes the environment variables read by LoadOptionsFromEnv.
const EnvPrefix = "OASVALIDATOR_"

// DefaultRouteCacheSize is the number of concrete request paths remembered by the route resolver.
const DefaultRouteCacheSize = 1000

// DefaultReloadDebounce is the quiet period before a changed document is reloaded.
const DefaultReloadDebounce = 2 * time.Second

// Options controls how validators are built and how failures are reported.
type Options struct {
	// ContentTypeValidation checks the request Content-Type against the operation media types.
	ContentTypeValidation bool `koanf:"contentTypeValidation" env:"CONTENT_TYPE_VALIDATION"`

	// ExpectFormFieldsInBody validates Swagger 2 formData fields as an object body.
	ExpectFormFieldsInBody bool `koanf:"expectFormFieldsInBody" env:"EXPECT_FORM_FIELDS_IN_BODY"`

	// MakeOptionalAttributesNullable lets clients send null for optional body properties.
	MakeOptionalAttributesNullable bool `koanf:"makeOptionalAttributesNullable" env:"MAKE_OPTIONAL_ATTRIBUTES_NULLABLE"`

	// AllowUnknownQueryParameters accepts query parameters the operation does not declare.
	AllowUnknownQueryParameters bool `koanf:"allowUnknownQueryParameters" env:"ALLOW_UNKNOWN_QUERY_PARAMETERS"`

	// SkipSpecValidation loads OpenAPI 3 documents without validating them first.
	SkipSpecValidation bool `koanf:"skipSpecValidation" env:"SKIP_SPEC_VALIDATION"`

	BeautifyErrors bool `koanf:"beautifyErrors" env:"BEAUTIFY_ERRORS"`
	FirstError     bool `koanf:"firstError" env:"FIRST_ERROR"`

	// RouteCacheSize bounds the request path memoization, 0 disables it.
	RouteCacheSize int `koanf:"routeCacheSize" env:"ROUTE_CACHE_SIZE"`

	// Framework names the adapter used by the middleware package: std, chi, mux.
	Framework string `koanf:"framework" env:"FRAMEWORK"`

	// ReloadDebounce is how long a Reloader waits for the document file to settle.
	ReloadDebounce time.Duration `koanf:"reloadDebounce" env:"RELOAD_DEBOUNCE"`

	// Formats adds string formats. gojsonschema keeps formats in one process-wide registry,
	// so a name registered by two Instances with different functions uses the last one for both.
	Formats    map[string]FormatFunc `koanf:"-"`
	Logger     *slog.Logger          `koanf:"-"`
	Registerer prometheus.Registerer `koanf:"-"`
}

// Option changes Options.
type Option func(*Options)

// NewDefaultOptions returns the options used when nothing is configured.
func NewDefaultOptions() *Options {
	return &Options{
		BeautifyErrors: true,
		RouteCacheSize: DefaultRouteCacheSize,
		Framework:      "std",
		ReloadDebounce: DefaultReloadDebounce,
	}
}

// LoadOptionsFromFile reads options from a YAML file on top of the defaults.
func LoadOptionsFromFile(filePath string) (*Options, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		return nil, err
	}
	return unmarshalOptions(k)
}

// NewOptionsFromContent reads options from YAML content on top of the defaults.
func NewOptionsFromContent(content []byte) (*Options, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, err
	}
	return unmarshalOptions(k)
}

// LoadOptionsFromEnv reads OASVALIDATOR_* variables on top of the defaults.
// Variables from dotenvFiles are used when the process environment does not set them.
func LoadOptionsFromEnv(dotenvFiles ...string) (*Options, error) {
	environment := make(map[string]string)
	if len(dotenvFiles) > 0 {
		fromFiles, err := godotenv.Read(dotenvFiles...)
		if err != nil {
			return nil, err
		}
		for key, value := range fromFiles {
			environment[key] = value
		}
	}
	for _, pair := range os.Environ() {
		if key, value, ok := strings.Cut(pair, "="); ok {
			environment[key] = value
		}
	}

	opts := NewDefaultOptions()
	if err := env.ParseWithOptions(opts, env.Options{Prefix: EnvPrefix, Environment: environment}); err != nil {
		return nil, err
	}
	if opts.RouteCacheSize < 0 {
		opts.RouteCacheSize = 0
	}
	return opts, nil
}

func unmarshalOptions(k *koanf.Koanf) (*Options, error) {
	opts := NewDefaultOptions()
	if err := k.Unmarshal("", opts); err != nil {
		return nil, err
	}
	if opts.RouteCacheSize < 0 {
		opts.RouteCacheSize = 0
	}
	return opts, nil
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func newOptions(opts []Option) *Options {
	res := NewDefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(res)
		}
	}
	return res
}

// WithOptions replaces all options, typically with ones loaded from a file.
func WithOptions(src *Options) Option {
	return func(o *Options) {
		if src != nil {
			*o = *src
		}
	}
}

// WithContentTypeValidation turns the Content-Type check on or off.
func WithContentTypeValidation(enabled bool) Option {
	return func(o *Options) {
		o.ContentTypeValidation = enabled
	}
}

// WithFormFieldsInBody turns Swagger 2 form field body validation on or off.
func WithFormFieldsInBody(enabled bool) Option {
	return func(o *Options) {
		o.ExpectFormFieldsInBody = enabled
	}
}

// WithOptionalAttributesNullable turns the optional nullable transform on or off.
func WithOptionalAttributesNullable(enabled bool) Option {
	return func(o *Options) {
		o.MakeOptionalAttributesNullable = enabled
	}
}

// WithUnknownQueryParameters allows or rejects undeclared query parameters.
func WithUnknownQueryParameters(allowed bool) Option {
	return func(o *Options) {
		o.AllowUnknownQueryParameters = allowed
	}
}

// WithSpecValidation turns OpenAPI 3 document validation on or off.
func WithSpecValidation(enabled bool) Option {
	return func(o *Options) {
		o.SkipSpecValidation = !enabled
	}
}

// WithFirstError keeps only the first failure in InputValidationError.
func WithFirstError(enabled bool) Option {
	return func(o *Options) {
		o.FirstError = enabled
	}
}

// WithBeautifyErrors renders failures as messages in InputValidationError.Error.
func WithBeautifyErrors(enabled bool) Option {
	return func(o *Options) {
		o.BeautifyErrors = enabled
	}
}

// WithRouteCacheSize sets the request path memoization size.
func WithRouteCacheSize(size int) Option {
	return func(o *Options) {
		if size < 0 {
			size = 0
		}
		o.RouteCacheSize = size
	}
}

// WithReloadDebounce sets the quiet period of Reloader.
func WithReloadDebounce(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.ReloadDebounce = d
		}
	}
}

// WithFormat registers a custom string format.
// Formats are process-wide: the latest function registered under name serves every Instance.
func WithFormat(name string, fn FormatFunc) Option {
	return func(o *Options) {
		if o.Formats == nil {
			o.Formats = make(map[string]FormatFunc)
		}
		o.Formats[name] = fn
	}
}

// WithLogger sets the logger used at build time and for route misses.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithRegisterer registers validation metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Registerer = reg
	}
}
