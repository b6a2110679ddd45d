package tenancy

// DefaultHeader is the development override header carrying a tenant slug.
const DefaultHeader = "X-Tenant"

// DefaultIgnorePaths are paths that never need a tenant: authentication,
// health checks and static assets.
var DefaultIgnorePaths = []string{
	"/up",
	"/healthz",
	"/metrics",
	"/login",
	"/register",
	"/forgot-password",
	"/reset-password*",
	"/email/*",
	"/verification*",
	"/logout",
	"/assets/*",
	"/storage/*",
}

// Config controls tenant resolution.
type Config struct {
	// Enabled turns tenant resolution on. When false no tenant is resolved
	// and nothing is enforced.
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`

	// AllowHeader honours the override header outside development.
	AllowHeader bool `json:"allow_header" mapstructure:"allow_header" yaml:"allow_header"`

	// HeaderName is the override header. Defaults to X-Tenant.
	HeaderName string `json:"header" mapstructure:"header" yaml:"header"`

	// IgnorePaths are glob patterns ("*" matches any run of characters)
	// checked in order before resolution runs.
	IgnorePaths []string `json:"ignore_paths" mapstructure:"ignore_paths" yaml:"ignore_paths"`

	// Environment is the application environment. "local" and
	// "development" allow the override header implicitly.
	Environment string `json:"environment" mapstructure:"environment" yaml:"environment"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		HeaderName:  DefaultHeader,
		IgnorePaths: append([]string(nil), DefaultIgnorePaths...),
		Environment: "production",
	}
}

func (c Config) header() string {
	if c.HeaderName == "" {
		return DefaultHeader
	}
	return c.HeaderName
}

// headerAllowed reports whether the override header is honoured.
func (c Config) headerAllowed() bool {
	if c.AllowHeader {
		return true
	}
	switch c.Environment {
	case "local", "development", "dev":
		return true
	default:
		return false
	}
}
