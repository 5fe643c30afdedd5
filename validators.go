package oasvalidator

import (
	"fmt"

	"github.com/cubahno/oasvalidator/internal/tree"
)

// ErrorRecord is a single validation failure.
// The shape mirrors what JSON-Schema validators usually report so that formatting layers
// can treat engine errors and discriminator errors the same way.
type ErrorRecord struct {
	Keyword    string         `json:"keyword"`
	DataPath   string         `json:"dataPath"`
	SchemaPath string         `json:"schemaPath"`
	Params     map[string]any `json:"params"`
	Message    string         `json:"message"`
}

// ErrorRecords is an ordered list of validation failures.
type ErrorRecords []*ErrorRecord

// Validator checks data against a compiled contract.
// Failures are returned, never raised, and implementations hold no per-call state,
// so a Validator can be shared by concurrent requests.
type Validator interface {
	Validate(data any) (bool, ErrorRecords)
}

// SimpleValidator delegates to a single compiled schema.
type SimpleValidator struct {
	schema *CompiledSchema
}

// NewSimpleValidator wraps a compiled schema.
func NewSimpleValidator(schema *CompiledSchema) *SimpleValidator {
	return &SimpleValidator{schema: schema}
}

// Validate implements Validator.
func (v *SimpleValidator) Validate(data any) (bool, ErrorRecords) {
	return v.schema.Validate(data)
}

// OneOfValidator dispatches on a discriminator property to one of the subtype validators.
// It is what Swagger 2 allOf inheritance compiles to.
type OneOfValidator struct {
	PropertyName string
	Inheritance  []string
	subtypes     map[string]Validator
}

// NewOneOfValidator creates a single level discriminated validator.
// The order of inheritance is kept for error reporting.
func NewOneOfValidator(propertyName string, inheritance []string, subtypes map[string]Validator) *OneOfValidator {
	return &OneOfValidator{
		PropertyName: propertyName,
		Inheritance:  inheritance,
		subtypes:     subtypes,
	}
}

// Validate implements Validator.
func (v *OneOfValidator) Validate(data any) (bool, ErrorRecords) {
	value, _ := discriminatorValue(data, v.PropertyName)
	if sub, ok := v.subtypes[value]; ok {
		return sub.Validate(data)
	}
	return false, ErrorRecords{newEnumError(v.PropertyName, v.Inheritance)}
}

// DiscriminatorNode is the value of a branching tree node.
// Values listed in AllowedValues either have a terminal validator in Validators
// or a child node that discriminates further.
type DiscriminatorNode struct {
	PropertyName  string
	AllowedValues []string
	Validators    map[string]Validator
}

func newDiscriminatorNode(propertyName string) *DiscriminatorNode {
	return &DiscriminatorNode{
		PropertyName: propertyName,
		Validators:   make(map[string]Validator),
	}
}

func (n *DiscriminatorNode) isAllowed(value string) bool {
	for _, allowed := range n.AllowedValues {
		if allowed == value {
			return true
		}
	}
	return false
}

// DiscriminatorValidator walks a discriminator tree following the payload's discriminator values.
type DiscriminatorValidator struct {
	root *tree.Node[*DiscriminatorNode]
}

// NewDiscriminatorValidator wraps a built discriminator tree.
func NewDiscriminatorValidator(root *tree.Node[*DiscriminatorNode]) *DiscriminatorValidator {
	return &DiscriminatorValidator{root: root}
}

// Root returns the tree the validator dispatches over.
func (v *DiscriminatorValidator) Root() *tree.Node[*DiscriminatorNode] {
	return v.root
}

// Validate implements Validator.
// It panics when it reaches a node without a discriminator: such a tree can only come from a
// builder bug, never from user input.
func (v *DiscriminatorValidator) Validate(data any) (bool, ErrorRecords) {
	return dispatch(v.root, data)
}

func dispatch(node *tree.Node[*DiscriminatorNode], data any) (bool, ErrorRecords) {
	if node == nil || node.Value() == nil || node.Value().PropertyName == "" {
		panic(ErrNoDiscriminator)
	}
	current := node.Value()

	value, _ := discriminatorValue(data, current.PropertyName)
	if !current.isAllowed(value) {
		return false, ErrorRecords{newEnumError(current.PropertyName, current.AllowedValues)}
	}

	if validator, ok := current.Validators[value]; ok {
		return validator.Validate(data)
	}

	child, ok := node.Child(value)
	if !ok {
		panic(fmt.Errorf("%w: no branch for %s=%q", ErrNoDiscriminator, current.PropertyName, value))
	}
	return dispatch(child, data)
}

// discriminatorValue reads data[property] as a string.
// Non-object payloads, missing keys and non-string values yield an empty, unmatched value.
func discriminatorValue(data any, property string) (string, bool) {
	obj, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := obj[property].(string)
	if !ok {
		return "", false
	}
	return value, true
}

func newEnumError(property string, allowed []string) *ErrorRecord {
	values := make([]string, len(allowed))
	copy(values, allowed)
	return &ErrorRecord{
		Keyword:    "enum",
		DataPath:   "." + property,
		SchemaPath: "#/properties/" + property + "/enum",
		Params:     map[string]any{"allowedValues": values},
		Message:    "should be equal to one of the allowed values",
	}
}
