package bastion

// Config holds configuration for the Bastion engine.
type Config struct {
	// Guard is the authorization guard scope whose roles are evaluated.
	// Defaults to "web".
	Guard string `json:"guard,omitempty" mapstructure:"guard" yaml:"guard"`

	// AdminRoleBypass lets the admin role manage users without holding the
	// users.* permissions. Defaults to true.
	AdminRoleBypass *bool `json:"admin_role_bypass,omitempty" mapstructure:"admin_role_bypass" yaml:"admin_role_bypass"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		Guard:           "web",
		AdminRoleBypass: &t,
	}
}

func (c Config) guard() string {
	if c.Guard == "" {
		return "web"
	}
	return c.Guard
}

func (c Config) adminBypass() bool { return c.AdminRoleBypass == nil || *c.AdminRoleBypass }
