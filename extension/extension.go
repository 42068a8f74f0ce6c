// Package extension provides the Forge extension adapter for rights.
//
// It implements the forge.Extension interface to integrate the rights
// engine into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rights" or "rights" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/rights"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/policy/gated"
	"github.com/xraph/rights/policy/rental"
	"github.com/xraph/rights/policy/subscription"
	"github.com/xraph/rights/store"
	"github.com/xraph/rights/store/memory"
	"github.com/xraph/rights/store/mongo"
	"github.com/xraph/rights/store/postgres"
	"github.com/xraph/rights/store/sqlite"
	"github.com/xraph/rights/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rights"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Content rights-management and monetization engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rights engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rights.Engine
	store      store.Store
	engineOpts []rights.Option
	useGrove   bool
}

// New creates a new rights Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying rights engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rights.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && (e.useGrove || e.config.GroveDatabase != "") {
		s, err := e.resolveGroveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}
	e.engine = rights.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*rights.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rights: extension not initialized")
	}

	if err := e.startEngine(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// startEngine hydrates the engine, migrating the store first unless
// migrations are disabled.
func (e *Extension) startEngine(ctx context.Context) error {
	if e.config.DisableMigrate {
		return e.engine.Load(ctx)
	}
	return e.engine.Start(ctx)
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rights: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveGroveStore builds a store on the grove.DB registered in the container.
func (e *Extension) resolveGroveStore(fapp forge.App) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](fapp.Container())
	}
	if err != nil {
		return nil, fmt.Errorf("rights: resolve grove database: %w", err)
	}
	return StoreFor(db)
}

// StoreFor constructs the store matching db's driver.
func StoreFor(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("rights: unsupported grove driver %q", name)
	}
}

// Policies maps built-in policy names to their factories.
var Policies = map[string]rights.PolicyFactory{
	subscription.Name: func(env policy.Env) policy.Policy { return subscription.New(env) },
	rental.Name:       func(env policy.Env) policy.Policy { return rental.New(env) },
	gated.Name:        func(env policy.Env) policy.Policy { return gated.New(env) },
}

// buildEngineOpts constructs rights.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]rights.Option, error) {
	opts, err := EngineOptions(e.config)
	if err != nil {
		return nil, err
	}
	// Append any pass-through engine options.
	return append(opts, e.engineOpts...), nil
}

// EngineOptions translates cfg into engine options. Unknown policy names
// are an error.
func EngineOptions(cfg Config) ([]rights.Option, error) {
	opts := make([]rights.Option, 0, len(cfg.Policies)+4)

	opts = append(opts,
		rights.WithAdmin(types.NewAccount(cfg.Admin)),
		rights.WithTreasury(types.NewAccount(cfg.Treasury)),
		rights.WithVault(types.NewAccount(cfg.Vault)),
	)

	if cfg.EnrollmentFee > 0 {
		opts = append(opts, rights.WithEnrollmentFee(
			types.NewMoney(cfg.EnrollmentFee, types.NewCurrency(cfg.EnrollmentCurrency)),
		))
	}

	for _, name := range cfg.Policies {
		factory, ok := Policies[name]
		if !ok {
			return nil, fmt.Errorf("rights: unknown policy %q in configuration", name)
		}
		opts = append(opts, rights.WithPolicy(factory))
	}

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rights: configuration is required but not found in config files; " +
				"ensure 'extensions.rights' or 'rights' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = MergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = MergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rights: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("admin", e.config.Admin),
		forge.F("enrollment_fee", e.config.EnrollmentFee),
		forge.F("policies", e.config.Policies),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.rights" first (namespaced pattern).
	if cm.IsSet("extensions.rights") {
		if err := cm.Bind("extensions.rights", &cfg); err == nil {
			e.Logger().Debug("rights: loaded config from file",
				forge.F("key", "extensions.rights"),
			)
			return cfg, true
		}
		e.Logger().Warn("rights: failed to bind extensions.rights config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "rights" key.
	if cm.IsSet("rights") {
		if err := cm.Bind("rights", &cfg); err == nil {
			e.Logger().Debug("rights: loaded config from file",
				forge.F("key", "rights"),
			)
			return cfg, true
		}
		e.Logger().Warn("rights: failed to bind rights config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// MergeWithDefaults fills zero-valued fields with defaults.
func MergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Admin == "" {
		cfg.Admin = defaults.Admin
	}
	if cfg.Treasury == "" {
		cfg.Treasury = defaults.Treasury
	}
	if cfg.Vault == "" {
		cfg.Vault = defaults.Vault
	}
	if cfg.EnrollmentCurrency == "" {
		cfg.EnrollmentCurrency = defaults.EnrollmentCurrency
	}
	if cfg.Policies == nil {
		cfg.Policies = defaults.Policies
	}
	return cfg
}

// MergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func MergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Admin == "" {
		yamlConfig.Admin = programmaticConfig.Admin
	}
	if yamlConfig.Treasury == "" {
		yamlConfig.Treasury = programmaticConfig.Treasury
	}
	if yamlConfig.Vault == "" {
		yamlConfig.Vault = programmaticConfig.Vault
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// The fee and its currency travel together.
	if yamlConfig.EnrollmentFee == 0 && programmaticConfig.EnrollmentFee != 0 {
		yamlConfig.EnrollmentFee = programmaticConfig.EnrollmentFee
		yamlConfig.EnrollmentCurrency = programmaticConfig.EnrollmentCurrency
	}

	if yamlConfig.Policies == nil {
		yamlConfig.Policies = programmaticConfig.Policies
	}

	// Fill remaining zeros with defaults.
	return MergeWithDefaults(yamlConfig)
}
