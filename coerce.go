package oasvalidator

import (
	"fmt"
	"strconv"
	"strings"
)

// coerceParameter converts raw request strings into the types the parameter schema declares.
// Values that do not convert are returned unchanged for the schema to reject.
func coerceParameter(p *Parameter, value any) any {
	if value == nil {
		return nil
	}

	if schemaType(p.Schema) == TypeArray {
		items, _ := p.Schema["items"].(map[string]any)
		values := splitValues(value, p.delimiter())
		res := make([]any, 0, len(values))
		for _, item := range values {
			res = append(res, coerceScalar(schemaType(items), item))
		}
		return res
	}

	switch list := value.(type) {
	case []string:
		if len(list) == 1 {
			return coerceScalar(schemaType(p.Schema), list[0])
		}
	case []any:
		if len(list) == 1 {
			return coerceScalar(schemaType(p.Schema), list[0])
		}
	}
	return coerceScalar(schemaType(p.Schema), value)
}

// delimiter returns the separator of serialized arrays, empty when values repeat instead.
func (p *Parameter) delimiter() string {
	switch p.CollectionFormat {
	case "csv":
		return ","
	case "ssv":
		return " "
	case "tsv":
		return "\t"
	case "pipes":
		return "|"
	case "multi":
		return ""
	}

	switch p.Style {
	case "spaceDelimited":
		return " "
	case "pipeDelimited":
		return "|"
	case "form":
		if p.Explode != nil && !*p.Explode {
			return ","
		}
		return ""
	case "simple":
		return ","
	}

	return ","
}

func splitValues(value any, delimiter string) []any {
	var raw []string
	switch v := value.(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			raw = append(raw, fmt.Sprint(item))
		}
	case string:
		raw = []string{v}
	default:
		return []any{value}
	}

	var res []any
	for _, item := range raw {
		if delimiter == "" || len(raw) > 1 {
			res = append(res, item)
			continue
		}
		if item == "" {
			continue
		}
		for _, part := range strings.Split(item, delimiter) {
			if delimiter != " " && delimiter != "\t" {
				part = strings.TrimSpace(part)
			}
			res = append(res, part)
		}
	}
	if res == nil {
		res = []any{}
	}
	return res
}

func coerceScalar(typ string, value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	switch typ {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case TypeNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case TypeBoolean:
		if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
			return b
		}
	}
	return s
}

// schemaType returns the first non-null type of schema.
func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != TypeNull {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != TypeNull {
				return s
			}
		}
	}
	return ""
}
