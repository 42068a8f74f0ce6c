package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
)

// Registry manages registered plugins. Hook implementations are cached per
// interface at registration so that dispatch does no type assertions.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit              []OnInit
	onShutdown          []OnShutdown
	onEnrollment        []OnEnrollment
	onContentRegistered []OnContentRegistered
	onCustodyDelegated  []OnCustodyDelegated
	onPolicySetup       []OnPolicySetup
	onFeeChanged        []OnFeeChanged
	onSettled           []OnSettled
	onWithdrawn         []OnWithdrawn
	onDeposit           []OnDeposit
	onAccessChecked     []OnAccessChecked
	onAccessRevoked     []OnAccessRevoked
	onCallFailed        []OnCallFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: 5 * time.Second,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout bounds how long a single hook may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnEnrollment); ok {
		r.onEnrollment = append(r.onEnrollment, v)
		hooks = append(hooks, "OnEnrollment")
	}
	if v, ok := p.(OnContentRegistered); ok {
		r.onContentRegistered = append(r.onContentRegistered, v)
		hooks = append(hooks, "OnContentRegistered")
	}
	if v, ok := p.(OnCustodyDelegated); ok {
		r.onCustodyDelegated = append(r.onCustodyDelegated, v)
		hooks = append(hooks, "OnCustodyDelegated")
	}
	if v, ok := p.(OnPolicySetup); ok {
		r.onPolicySetup = append(r.onPolicySetup, v)
		hooks = append(hooks, "OnPolicySetup")
	}
	if v, ok := p.(OnFeeChanged); ok {
		r.onFeeChanged = append(r.onFeeChanged, v)
		hooks = append(hooks, "OnFeeChanged")
	}
	if v, ok := p.(OnSettled); ok {
		r.onSettled = append(r.onSettled, v)
		hooks = append(hooks, "OnSettled")
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
		hooks = append(hooks, "OnWithdrawn")
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
		hooks = append(hooks, "OnDeposit")
	}
	if v, ok := p.(OnAccessChecked); ok {
		r.onAccessChecked = append(r.onAccessChecked, v)
		hooks = append(hooks, "OnAccessChecked")
	}
	if v, ok := p.(OnAccessRevoked); ok {
		r.onAccessRevoked = append(r.onAccessRevoked, v)
		hooks = append(hooks, "OnAccessRevoked")
	}
	if v, ok := p.(OnCallFailed); ok {
		r.onCallFailed = append(r.onCallFailed, v)
		hooks = append(hooks, "OnCallFailed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every hook in list, logging failures.
func emit[T Plugin](r *Registry, ctx context.Context, hook string, list func(*Registry) []T, call func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(r, ctx, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, ctx, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitEnrollment emits a committed enrollment transition.
func (r *Registry) EmitEnrollment(ctx context.Context, ev EnrollmentEvent) {
	emit(r, ctx, "OnEnrollment", func(r *Registry) []OnEnrollment { return r.onEnrollment },
		func(p OnEnrollment) error { return p.OnEnrollment(ctx, ev) })
}

// EmitContentRegistered emits a content registration.
func (r *Registry) EmitContentRegistered(ctx context.Context, rec ownership.Record) {
	emit(r, ctx, "OnContentRegistered", func(r *Registry) []OnContentRegistered { return r.onContentRegistered },
		func(p OnContentRegistered) error { return p.OnContentRegistered(ctx, rec) })
}

// EmitCustodyDelegated emits a custody change.
func (r *Registry) EmitCustodyDelegated(ctx context.Context, rec ownership.Record) {
	emit(r, ctx, "OnCustodyDelegated", func(r *Registry) []OnCustodyDelegated { return r.onCustodyDelegated },
		func(p OnCustodyDelegated) error { return p.OnCustodyDelegated(ctx, rec) })
}

// EmitPolicySetup emits stored terms.
func (r *Registry) EmitPolicySetup(ctx context.Context, ev SetupEvent) {
	emit(r, ctx, "OnPolicySetup", func(r *Registry) []OnPolicySetup { return r.onPolicySetup },
		func(p OnPolicySetup) error { return p.OnPolicySetup(ctx, ev) })
}

// EmitFeeChanged emits a rate change.
func (r *Registry) EmitFeeChanged(ctx context.Context, rate treasury.Rate) {
	emit(r, ctx, "OnFeeChanged", func(r *Registry) []OnFeeChanged { return r.onFeeChanged },
		func(p OnFeeChanged) error { return p.OnFeeChanged(ctx, rate) })
}

// EmitSettled emits a settlement receipt.
func (r *Registry) EmitSettled(ctx context.Context, rec *receipt.Receipt) {
	emit(r, ctx, "OnSettled", func(r *Registry) []OnSettled { return r.onSettled },
		func(p OnSettled) error { return p.OnSettled(ctx, rec) })
}

// EmitWithdrawn emits a withdrawal receipt.
func (r *Registry) EmitWithdrawn(ctx context.Context, rec *receipt.Receipt) {
	emit(r, ctx, "OnWithdrawn", func(r *Registry) []OnWithdrawn { return r.onWithdrawn },
		func(p OnWithdrawn) error { return p.OnWithdrawn(ctx, rec) })
}

// EmitDeposit emits a deposit or refund receipt.
func (r *Registry) EmitDeposit(ctx context.Context, rec *receipt.Receipt) {
	emit(r, ctx, "OnDeposit", func(r *Registry) []OnDeposit { return r.onDeposit },
		func(p OnDeposit) error { return p.OnDeposit(ctx, rec) })
}

// EmitAccessChecked emits an access check result.
func (r *Registry) EmitAccessChecked(ctx context.Context, result *access.Result) {
	emit(r, ctx, "OnAccessChecked", func(r *Registry) []OnAccessChecked { return r.onAccessChecked },
		func(p OnAccessChecked) error { return p.OnAccessChecked(ctx, result) })
}

// EmitAccessRevoked emits a revoked allow-list grant.
func (r *Registry) EmitAccessRevoked(ctx context.Context, grant access.Grant) {
	emit(r, ctx, "OnAccessRevoked", func(r *Registry) []OnAccessRevoked { return r.onAccessRevoked },
		func(p OnAccessRevoked) error { return p.OnAccessRevoked(ctx, grant) })
}

// EmitCallFailed emits a rolled-back call.
func (r *Registry) EmitCallFailed(ctx context.Context, op string, err error) {
	emit(r, ctx, "OnCallFailed", func(r *Registry) []OnCallFailed { return r.onCallFailed },
		func(p OnCallFailed) error { return p.OnCallFailed(ctx, op, err) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the engine.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
