package extension

import (
	"github.com/xraph/rights"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/store"
)

// Option configures the rights Forge extension.
type Option func(*Extension)

// WithStore sets the store for the rights engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a rights.Option through to the underlying engine.
func WithEngineOption(opt rights.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a rights plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rights.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithAdmin sets the admin account.
func WithAdmin(account string) Option {
	return func(e *Extension) { e.config.Admin = account }
}

// WithEnrollmentFee sets the distributor enrollment deposit.
func WithEnrollmentFee(amount uint64, currency string) Option {
	return func(e *Extension) {
		e.config.EnrollmentFee = amount
		e.config.EnrollmentCurrency = currency
	}
}

// WithPolicies selects the built-in policies to install.
func WithPolicies(names ...string) Option {
	return func(e *Extension) { e.config.Policies = names }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
