package oasvalidator

import (
	"fmt"

	"github.com/cubahno/oasvalidator/internal/types"
)

// makeOptionalNullable lets every optional property of a converted schema document be null.
// Required properties keep their type, nested objects are handled at every level.
func makeOptionalNullable(doc map[string]any) {
	nullableVisit(doc)
	if defs, ok := doc["definitions"].(map[string]any); ok {
		for _, def := range defs {
			if s, isMap := def.(map[string]any); isMap {
				nullableVisit(s)
			}
		}
	}
}

func nullableVisit(s map[string]any) {
	required := requiredNames(s["required"])

	if props, ok := s["properties"].(map[string]any); ok {
		for name, raw := range props {
			prop, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			nullableVisit(prop)
			if !types.SliceContains(required, name) {
				props[name] = withNull(prop)
			}
		}
	}

	switch items := s["items"].(type) {
	case map[string]any:
		nullableVisit(items)
	case []any:
		visitAll(items)
	}

	if additional, ok := s["additionalProperties"].(map[string]any); ok {
		nullableVisit(additional)
	}

	for _, keyword := range []string{"allOf", "oneOf", "anyOf"} {
		if list, ok := s[keyword].([]any); ok {
			visitAll(list)
		}
	}
}

func visitAll(list []any) {
	for _, item := range list {
		if s, ok := item.(map[string]any); ok {
			nullableVisit(s)
		}
	}
}

// withNull adds null to what prop accepts.
// References cannot carry siblings so they are wrapped.
func withNull(prop map[string]any) map[string]any {
	if _, isRef := prop["$ref"]; isRef {
		return map[string]any{
			"anyOf": []any{prop, map[string]any{"type": TypeNull}},
		}
	}

	switch t := prop["type"].(type) {
	case string:
		if t != TypeNull {
			prop["type"] = []any{t, TypeNull}
		}
	case []any:
		if !types.SliceContains(t, any(TypeNull)) {
			prop["type"] = append(t, TypeNull)
		}
	}

	if enum, ok := prop["enum"].([]any); ok && !containsNil(enum) {
		prop["enum"] = append(enum, nil)
	}
	return prop
}

func requiredNames(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		res := make([]string, 0, len(v))
		for _, item := range v {
			res = append(res, fmt.Sprint(item))
		}
		return res
	}
	return nil
}
