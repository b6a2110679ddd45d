package extension

import (
	"github.com/xraph/bastion"
	"github.com/xraph/bastion/api"
	"github.com/xraph/bastion/tenancy"
)

// Config holds the Bastion extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.bastion" or "bastion" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for admin routes (default: "/v1/admin").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// GroveDriver selects the store built around the grove.DB found in the
	// DI container: "pg", "sqlite" or "mongo". Empty disables the lookup.
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// Engine configures authorization.
	Engine bastion.Config `json:"engine" mapstructure:"engine" yaml:"engine"`

	// Tenancy configures tenant resolution.
	Tenancy tenancy.Config `json:"tenancy" mapstructure:"tenancy" yaml:"tenancy"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: api.BasePath,
		Engine:   bastion.DefaultConfig(),
		Tenancy:  tenancy.DefaultConfig(),
	}
}
