package oasvalidator

import (
	"fmt"
	"sort"

	"github.com/cubahno/oasvalidator/internal/tree"
	"github.com/cubahno/oasvalidator/internal/types"
	"github.com/getkin/kin-openapi/openapi3"
)

// MaxDiscriminatorDepth is how many schemas a discriminator chain may hold, leaf included.
const MaxDiscriminatorDepth = 20

// accumulator carries what ancestors of a discriminated schema require from every descendant.
type accumulator struct {
	required   []string
	properties map[string]*openapi3.SchemaRef
}

// extend returns a copy of acc with the schema's own top-level required and properties merged in.
// Properties declared by the schema replace inherited ones, readOnly ones are never required.
func (acc accumulator) extend(s *openapi3.Schema) accumulator {
	var required []string
	for _, name := range requestRequired(s) {
		required = append(required, name.(string))
	}

	res := accumulator{
		required:   types.SliceUnion(acc.required, required...),
		properties: make(map[string]*openapi3.SchemaRef, len(acc.properties)+len(s.Properties)),
	}
	for name, prop := range acc.properties {
		res.properties[name] = prop
	}
	for name, prop := range s.Properties {
		res.properties[name] = prop
	}
	return res
}

type discriminatorBuilder struct {
	compiler *Compiler
	options  *Options
	root     *tree.Node[*DiscriminatorNode]
}

// buildDiscriminatorValidation compiles a body schema.
// Schemas without a discriminator compile to a single schema, others to a dispatch tree.
func buildDiscriminatorValidation(compiler *Compiler, schemaRef *openapi3.SchemaRef, opts *Options) (Validator, error) {
	if schemaRef == nil || schemaRef.Value == nil {
		return nil, fmt.Errorf("%w: empty body schema", ErrInvalidSchema)
	}

	if schemaRef.Value.Discriminator == nil {
		doc := newSchemaConverter().document(schemaRef.Value)
		compiled, err := compileConverted(compiler, doc, opts)
		if err != nil {
			return nil, err
		}
		return NewSimpleValidator(compiled), nil
	}

	b := &discriminatorBuilder{compiler: compiler, options: opts}
	if err := b.build(schemaRef, nil, "", accumulator{}, MaxDiscriminatorDepth); err != nil {
		return nil, err
	}
	return NewDiscriminatorValidator(b.root), nil
}

func (b *discriminatorBuilder) build(
	ref *openapi3.SchemaRef,
	parent *tree.Node[*DiscriminatorNode],
	branch string,
	acc accumulator,
	depth int,
) error {
	if depth <= 0 {
		return ErrDiscriminatorDepth
	}
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("%w: unresolved schema for %q", ErrInvalidSchema, branch)
	}

	schema := ref.Value
	if schema.Discriminator == nil {
		return b.leaf(schema, parent, branch, acc)
	}

	own := acc.extend(schema)
	node := tree.New(newDiscriminatorNode(schema.Discriminator.PropertyName))
	if b.root == nil {
		b.root = node
	} else {
		parent.AddChild(branch, node)
	}

	if len(schema.OneOf) == 0 {
		return ErrDiscriminatorOneOf
	}

	keys := make([]string, 0, len(schema.OneOf))
	for _, entry := range schema.OneOf {
		key, err := branchKey(schema.Discriminator, entry)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if dup, found := types.SliceFindDuplicate(keys); found {
		return fmt.Errorf("%w: %s=%q", ErrDiscriminatorMappingConflict, schema.Discriminator.PropertyName, dup)
	}
	node.Value().AllowedValues = keys

	for i, entry := range schema.OneOf {
		if err := b.build(entry, node, keys[i], own, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// leaf compiles a terminal schema with everything its ancestors require.
func (b *discriminatorBuilder) leaf(
	schema *openapi3.Schema,
	parent *tree.Node[*DiscriminatorNode],
	branch string,
	acc accumulator,
) error {
	converter := newSchemaConverter()
	doc := converter.convertSchema(schema)

	if len(acc.required) > 0 {
		var required []string
		if existing, ok := doc["required"].([]any); ok {
			for _, name := range existing {
				required = append(required, fmt.Sprint(name))
			}
		}
		required = types.SliceUnion(acc.required, required...)
		merged := make([]any, len(required))
		for i, name := range required {
			merged[i] = name
		}
		doc["required"] = merged
	}

	if len(acc.properties) > 0 {
		props, ok := doc["properties"].(map[string]any)
		if !ok {
			props = make(map[string]any, len(acc.properties))
		}
		names := make([]string, 0, len(acc.properties))
		for name := range acc.properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, declared := props[name]; declared {
				continue
			}
			props[name] = converter.convertRef(acc.properties[name])
		}
		doc["properties"] = props
	}

	compiled, err := compileConverted(b.compiler, converter.attach(doc), b.options)
	if err != nil {
		return fmt.Errorf("compiling %q: %w", branch, err)
	}
	parent.Value().Validators[branch] = NewSimpleValidator(compiled)
	return nil
}

// branchKey is the discriminator value selecting entry.
// An explicit mapping wins over the referenced schema name.
func branchKey(d *openapi3.Discriminator, entry *openapi3.SchemaRef) (string, error) {
	if entry == nil || entry.Ref == "" {
		return "", fmt.Errorf("%w: oneOf entries of %q must be references", ErrInvalidSchema, d.PropertyName)
	}
	name := refName(entry.Ref)

	var mapped []string
	for key, target := range d.Mapping {
		if target == entry.Ref || target == name {
			mapped = append(mapped, key)
		}
	}
	if len(mapped) > 0 {
		sort.Strings(mapped)
		return mapped[0], nil
	}
	return name, nil
}

func compileConverted(compiler *Compiler, doc map[string]any, opts *Options) (*CompiledSchema, error) {
	if opts != nil && opts.MakeOptionalAttributesNullable {
		makeOptionalNullable(doc)
	}
	return compiler.Compile(doc)
}
