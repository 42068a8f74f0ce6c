package policy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/xraph/rights/journal"
)

// Registry resolves policies by name at settlement time.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
	logger   *slog.Logger
	journal  *journal.Journal
}

// NewRegistry creates an empty registry.
func NewRegistry(j *journal.Journal) *Registry {
	return &Registry{
		policies: make(map[string]Policy),
		logger:   slog.Default(),
		journal:  j,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds p under its name.
func (r *Registry) Register(p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTerms)
	}
	if _, ok := r.policies[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePolicy, name)
	}
	r.policies[name] = p

	r.journal.Record(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.policies, name)
	}, nil)

	r.logger.Info("policy registered",
		"name", name,
		"description", p.Description(),
	)
	return nil
}

// Get returns the policy registered as name.
func (r *Registry) Get(name string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	return p, nil
}

// List returns every registered policy ordered by name.
func (r *Registry) List() []Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Policy, 0, len(r.policies))
	for _, p := range r.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Count returns the number of registered policies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.policies)
}
