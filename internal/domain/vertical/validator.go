package vertical

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/backoffice/backend/internal/domain/shared"
)

// AttributeDefinition declares one property a vertical expects on its entities
type AttributeDefinition struct {
	// Key is the property bag key, e.g. "license_number"
	Key string
	// Label is the display name used in validation messages
	Label string
	// Required indicates whether the attribute must be present and non-empty
	Required bool
	// Regex is an optional validation pattern applied to string values
	Regex string
}

// FieldError describes a validation failure on one attribute
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the structured outcome of validating a property bag
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// AddError records a field-level failure and marks the result invalid
func (r *ValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// AddWarning records a non-fatal observation
func (r *ValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Validator validates the property bag of a vertical entity
type Validator interface {
	// VerticalType returns the vertical tag this validator covers
	VerticalType() string
	// Validate checks the entity's property bag
	Validate(entity *Entity) ValidationResult
}

// AttributeValidator validates a property bag against a declarative list of
// attribute definitions. This is deliberately not a rules engine: checks are
// presence, emptiness and an optional regular expression per attribute.
type AttributeValidator struct {
	verticalType string
	attributes   []AttributeDefinition
	patterns     map[string]*regexp.Regexp
}

// NewAttributeValidator compiles the attribute definitions into a validator
func NewAttributeValidator(verticalType string, attributes []AttributeDefinition) (*AttributeValidator, error) {
	if verticalType == "" {
		return nil, fmt.Errorf("%w: vertical type cannot be empty", shared.ErrInvalidInput)
	}
	patterns := make(map[string]*regexp.Regexp)
	for _, attr := range attributes {
		if attr.Regex == "" {
			continue
		}
		re, err := regexp.Compile(attr.Regex)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern for attribute %q: %v", shared.ErrInvalidInput, attr.Key, err)
		}
		patterns[attr.Key] = re
	}
	return &AttributeValidator{
		verticalType: verticalType,
		attributes:   attributes,
		patterns:     patterns,
	}, nil
}

// VerticalType returns the vertical tag this validator covers
func (v *AttributeValidator) VerticalType() string {
	return v.verticalType
}

// Validate checks the entity's property bag against the attribute definitions
func (v *AttributeValidator) Validate(entity *Entity) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, attr := range v.attributes {
		value, present := entity.Properties[attr.Key]
		if !present {
			if attr.Required {
				result.AddError(attr.Key, fmt.Sprintf("%s is required", attr.Label))
			}
			continue
		}
		s, isString := value.(string)
		if attr.Required && isString && s == "" {
			result.AddError(attr.Key, fmt.Sprintf("%s cannot be empty", attr.Label))
			continue
		}
		if re, ok := v.patterns[attr.Key]; ok {
			if !isString {
				result.AddError(attr.Key, fmt.Sprintf("%s must be a string", attr.Label))
				continue
			}
			if !re.MatchString(s) {
				result.AddError(attr.Key, fmt.Sprintf("%s has an invalid format", attr.Label))
			}
		}
	}
	return result
}

// ValidatorRegistry maps vertical tags to validators. It is an explicit,
// constructed-once object passed into the composition service, populated at
// startup.
type ValidatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewValidatorRegistry creates an empty validator registry
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make(map[string]Validator),
	}
}

// Register adds a validator for its vertical type
func (r *ValidatorRegistry) Register(v Validator) error {
	if v == nil {
		return fmt.Errorf("%w: validator cannot be nil", shared.ErrInvalidInput)
	}
	name := v.VerticalType()
	if name == "" {
		return fmt.Errorf("%w: validator vertical type cannot be empty", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[name]; exists {
		return fmt.Errorf("%w: validator for %q already registered", shared.ErrAlreadyExists, name)
	}
	r.validators[name] = v
	return nil
}

// Unregister removes the validator for a vertical type
func (r *ValidatorRegistry) Unregister(verticalType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[verticalType]; !exists {
		return fmt.Errorf("%w: no validator for %q", shared.ErrNotFound, verticalType)
	}
	delete(r.validators, verticalType)
	return nil
}

// Get returns the validator for a vertical type
func (r *ValidatorRegistry) Get(verticalType string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[verticalType]
	return v, ok
}

// List returns the registered vertical types in sorted order
func (r *ValidatorRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
