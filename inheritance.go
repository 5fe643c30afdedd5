package oasvalidator

import (
	"sort"
	"strings"
)

// buildInheritanceValidation compiles a Swagger 2 body schema.
// A reference to a definition with a discriminator dispatches to the definitions extending it through allOf.
func buildInheritanceValidation(compiler *Compiler, doc *SwaggerDocument, schema map[string]any, opts *Options) (Validator, error) {
	ref, _ := schema["$ref"].(string)
	base, isBase := doc.definition(strings.TrimPrefix(ref, definitionsPrefix))
	propertyName, _ := base["discriminator"].(string)

	if !strings.HasPrefix(ref, definitionsPrefix) || !isBase || propertyName == "" {
		return compileSwaggerSchema(compiler, doc, schema, opts)
	}

	names := make([]string, 0, len(doc.Definitions))
	for name := range doc.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	var inheritance []string
	subtypes := make(map[string]Validator)
	for _, name := range names {
		def, _ := doc.definition(name)
		if !extends(def, ref) {
			continue
		}
		validator, err := compileSwaggerSchema(compiler, doc, map[string]any{"$ref": definitionsPrefix + name}, opts)
		if err != nil {
			return nil, err
		}
		inheritance = append(inheritance, name)
		subtypes[name] = validator
	}

	if len(inheritance) == 0 {
		return compileSwaggerSchema(compiler, doc, schema, opts)
	}
	return NewOneOfValidator(propertyName, inheritance, subtypes), nil
}

// extends reports whether def lists ref in its allOf.
func extends(def map[string]any, ref string) bool {
	allOf, _ := def["allOf"].([]any)
	for _, item := range allOf {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if target, _ := entry["$ref"].(string); target == ref {
			return true
		}
	}
	return false
}

func compileSwaggerSchema(compiler *Compiler, doc *SwaggerDocument, schema map[string]any, opts *Options) (Validator, error) {
	compiled, err := compileConverted(compiler, doc.schemaDocument(schema), opts)
	if err != nil {
		return nil, err
	}
	return NewSimpleValidator(compiled), nil
}
