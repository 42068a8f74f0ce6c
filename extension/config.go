package extension

// Config holds the rights extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rights" or "rights" keys).
type Config struct {
	// DisableMigrate prevents auto-migration and hydration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Admin is the account allowed to approve enrollments and set treasury
	// fees (default: "admin").
	Admin string `json:"admin" mapstructure:"admin" yaml:"admin"`

	// Treasury is the account credited with treasury fees (default: "treasury").
	Treasury string `json:"treasury" mapstructure:"treasury" yaml:"treasury"`

	// Vault is the account holding settled funds until withdrawal
	// (default: "vault").
	Vault string `json:"vault" mapstructure:"vault" yaml:"vault"`

	// EnrollmentFee is the deposit a distributor escrows on registration,
	// in the smallest unit of EnrollmentCurrency. Zero disables deposits.
	EnrollmentFee uint64 `json:"enrollment_fee" mapstructure:"enrollment_fee" yaml:"enrollment_fee"`

	// EnrollmentCurrency is the currency of EnrollmentFee (default: native).
	EnrollmentCurrency string `json:"enrollment_currency" mapstructure:"enrollment_currency" yaml:"enrollment_currency"`

	// Policies lists the built-in policies to install: "subscription",
	// "rental" and "gated" (default: all three).
	Policies []string `json:"policies" mapstructure:"policies" yaml:"policies"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Admin:              "admin",
		Treasury:           "treasury",
		Vault:              "vault",
		EnrollmentCurrency: "native",
		Policies:           []string{"subscription", "rental", "gated"},
	}
}
