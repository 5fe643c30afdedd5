package oasvalidator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySpec                    = errors.New("OpenAPI spec is empty")
	ErrUnsupportedSpecVersion       = errors.New("unsupported OpenAPI spec version")
	ErrNoPathsInSpec                = errors.New("no paths found in spec")
	ErrInvalidParameter             = errors.New("invalid parameter")
	ErrInvalidSchema                = errors.New("invalid schema")
	ErrDiscriminatorOneOf           = errors.New("oneOf must be part of discriminator")
	ErrDiscriminatorDepth           = fmt.Errorf("swagger schema exceed maximum supported depth of %d for discriminators", MaxDiscriminatorDepth)
	ErrDiscriminatorMappingConflict = errors.New("discriminator value maps to more than one schema")
	ErrNoDiscriminator              = errors.New("there is no discriminator on current value")
	ErrUnknownFramework             = errors.New("unknown framework")
)

// InputValidationError is returned when a request does not satisfy its operation contract.
// Parameter and body failures are collected together.
type InputValidationError struct {
	Parameters ErrorRecords
	Body       ErrorRecords

	beautify   bool
	firstError bool
}

// Records returns parameter errors followed by body errors.
// With the firstError option only the first one is kept.
func (e *InputValidationError) Records() ErrorRecords {
	res := make(ErrorRecords, 0, len(e.Parameters)+len(e.Body))
	res = append(res, e.Parameters...)
	res = append(res, e.Body...)
	if e.firstError && len(res) > 1 {
		res = res[:1]
	}
	return res
}

// Messages renders one line per error, prefixed with where it happened.
func (e *InputValidationError) Messages() []string {
	var res []string
	for _, rec := range e.Parameters {
		res = append(res, formatRecord(rec, ""))
	}
	for _, rec := range e.Body {
		res = append(res, formatRecord(rec, "body"))
	}
	if e.firstError && len(res) > 1 {
		res = res[:1]
	}
	return res
}

func (e *InputValidationError) Error() string {
	if !e.beautify {
		return "input validation error"
	}
	return strings.Join(e.Messages(), ", ")
}

// formatRecord turns `.query.limit` into `query/limit`.
// Body records have no envelope so the location is passed in.
func formatRecord(rec *ErrorRecord, location string) string {
	path := strings.TrimPrefix(rec.DataPath, ".")
	path = strings.NewReplacer("['", ".", "']", "", "[", ".", "]", "").Replace(path)
	path = strings.ReplaceAll(path, ".", "/")

	parts := make([]string, 0, 3)
	if location != "" {
		parts = append(parts, location)
	}
	if path != "" {
		parts = append(parts, path)
	}
	prefix := strings.Join(parts, "/")

	msg := rec.Message
	switch rec.Keyword {
	case "enum":
		if allowed, ok := rec.Params["allowedValues"]; ok {
			msg = fmt.Sprintf("%s [%s]", msg, joinAny(allowed))
		}
	case "required":
		if prop, ok := rec.Params["missingProperty"]; ok {
			msg = fmt.Sprintf("should have required property '%v'", prop)
		}
	}

	if prefix == "" {
		return msg
	}
	return prefix + " " + msg
}

func joinAny(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ",")
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(items, ",")
	}
	return fmt.Sprintf("%v", value)
}
