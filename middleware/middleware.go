// Package middleware validates incoming requests before they reach handlers.
package middleware

import (
	"errors"
	"net/http"

	"github.com/cubahno/oasvalidator"
	"github.com/labstack/echo/v4"
)

// Validator validates extracted requests. Both *oasvalidator.Instance and *oasvalidator.Reloader qualify.
type Validator interface {
	Validate(req *oasvalidator.Request) error
}

// ConfiguredValidator also exposes the options it was built with.
type ConfiguredValidator interface {
	Validator
	Options() oasvalidator.Options
}

// ErrorHandler responds to a request that failed validation.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	errorHandler ErrorHandler
}

// Option changes middleware behavior.
type Option func(*config)

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{errorHandler: DefaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ErrorResponse is what DefaultErrorHandler writes.
type ErrorResponse struct {
	Errors  []string                  `json:"errors"`
	Details oasvalidator.ErrorRecords `json:"details,omitempty"`
}

// DefaultErrorHandler writes a 400 JSON response listing the failures.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	res := &ErrorResponse{}

	var validationErr *oasvalidator.InputValidationError
	if errors.As(err, &validationErr) {
		res.Errors = validationErr.Messages()
		res.Details = validationErr.Records()
	} else {
		res.Errors = []string{err.Error()}
	}

	NewReply(w).JSON(res)
}

// HTTP returns net/http middleware, usable with chi and gorilla/mux routers too.
func HTTP(validator Validator, framework Framework, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := Extract(r, framework)
			if err == nil {
				err = validator.Validate(req)
			}
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Echo returns echo middleware. Register it with Use so the route is known.
func Echo(validator Validator, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, err := Extract(c.Request(), Std)
			if err == nil {
				req.RoutePath = c.Path()
				for _, name := range c.ParamNames() {
					req.PathParams[name] = c.Param(name)
				}
				err = validator.Validate(req)
			}
			if err != nil {
				cfg.errorHandler(c.Response(), c.Request(), err)
				return nil
			}
			return next(c)
		}
	}
}

// Configured returns HTTP middleware for the framework named in the instance options.
func Configured(validator ConfiguredValidator, opts ...Option) (func(http.Handler) http.Handler, error) {
	framework, err := ParseFramework(validator.Options().Framework)
	if err != nil {
		return nil, err
	}
	return HTTP(validator, framework, opts...), nil
}
