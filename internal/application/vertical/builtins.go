package vertical

import (
	"github.com/backoffice/backend/internal/domain/vertical"
)

// Builtins returns the vertical descriptors shipped with the binary.
// Deployments can register further verticals before the composition service
// is constructed.
func Builtins() []vertical.Descriptor {
	return []vertical.Descriptor{
		{
			Name:            "bakery",
			DisplayName:     "Bakery",
			RequiredModules: []string{"inventory", "production"},
			DefaultConfig: map[string]any{
				"shelf_life_days": float64(3),
				"track_batches":   true,
			},
			Attributes: []vertical.AttributeDefinition{
				{Key: "recipe_code", Label: "Recipe code", Required: true, Regex: `^RC-\d{4,}$`},
				{Key: "allergens", Label: "Allergens"},
			},
		},
		{
			Name:            "pharmacy",
			DisplayName:     "Pharmacy",
			RequiredModules: []string{"inventory", "compliance"},
			DefaultConfig: map[string]any{
				"require_prescription": true,
			},
			Attributes: []vertical.AttributeDefinition{
				{Key: "license_number", Label: "License number", Required: true},
				{Key: "active_substance", Label: "Active substance", Required: true},
			},
		},
	}
}

// RegisterBuiltins registers the built-in descriptors and builds an attribute
// validator for each descriptor that declares attributes
func RegisterBuiltins(registry *vertical.Registry, validators *vertical.ValidatorRegistry) error {
	for _, d := range Builtins() {
		if err := registry.Register(d); err != nil {
			return err
		}
		if len(d.Attributes) == 0 {
			continue
		}
		v, err := vertical.NewAttributeValidator(d.Name, d.Attributes)
		if err != nil {
			return err
		}
		if err := validators.Register(v); err != nil {
			return err
		}
	}
	return nil
}
