package rights

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/distributor"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/store"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// Default accounts used when no option overrides them.
const (
	DefaultAdmin    types.Account = "admin"
	DefaultTreasury types.Account = "treasury"
	DefaultVault    types.Account = "vault"
	DefaultIdentity types.Account = "rights"
)

// Engine is the rights orchestrator. It owns every book and workflow, and is
// the only identity policies accept Setup and Exec calls from.
type Engine struct {
	mu     sync.Mutex
	loaded bool

	// transferring is set while a call's external transfers run. Any call
	// arriving then is re-entrant, whatever context it carries.
	transferring atomic.Bool

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	journal *journal.Journal

	settlement *ledger.Ledger
	enrollment *ledger.Ledger
	rates      *treasury.Rates
	treasury   *treasury.Treasury

	distributors *quorum.Machine
	policies     *quorum.Machine
	contents     *quorum.Machine
	directory    *distributor.Directory
	ownership    *ownership.Book
	registry     *policy.Registry
	owners       ownership.Registry
	external     ownership.Registry
	assets       asset.Transferer

	admin         types.Account
	treasuryAcct  types.Account
	vault         types.Account
	identity      types.Account
	enrollmentFee types.Money
	clock         policy.Clock

	factories []PolicyFactory
}

// PolicyFactory builds a policy bound to the engine's environment.
type PolicyFactory func(env policy.Env) policy.Policy

// New creates an engine over s. Policies passed with WithPolicy are
// installed but not yet enrolled; see RegisterPolicy.
func New(s store.Store, opts ...Option) *Engine {
	j := journal.New()
	e := &Engine{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		journal:      j,
		admin:        DefaultAdmin,
		treasuryAcct: DefaultTreasury,
		vault:        DefaultVault,
		identity:     DefaultIdentity,
		clock:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.settlement = ledger.New(ledger.Settlement, j)
	e.enrollment = ledger.New(ledger.Enrollment, j)
	e.rates = treasury.NewRates(j)
	e.treasury = treasury.New(e.treasuryAcct, e.rates)
	e.distributors = quorum.New(quorum.Distributors, quorum.RevocationTable(), j)
	e.policies = quorum.New(quorum.Policies, quorum.AuditTable(), j)
	e.contents = quorum.New(quorum.Contents, quorum.AuditTable(), j)
	e.directory = distributor.NewDirectory(e.distributors, e.rates)
	e.ownership = ownership.NewBook(j)
	e.registry = policy.NewRegistry(j).WithLogger(e.logger)
	e.owners = e.ownership
	if e.external != nil {
		e.owners = e.external
	}
	if e.assets == nil {
		e.assets = asset.NewBook()
	}

	for _, f := range e.factories {
		if err := e.registry.Register(f(e.PolicyEnv())); err != nil {
			e.logger.Warn("policy install failed", "error", err)
		}
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAdmin sets the account allowed to approve, reject and set treasury fees.
func WithAdmin(a types.Account) Option {
	return func(e *Engine) { e.admin = a }
}

// WithTreasury sets the account treasury fees are credited to.
func WithTreasury(a types.Account) Option {
	return func(e *Engine) { e.treasuryAcct = a }
}

// WithVault sets the asset account that custodies all settled funds.
func WithVault(a types.Account) Option {
	return func(e *Engine) { e.vault = a }
}

// WithIdentity sets the orchestrator identity presented to policies.
func WithIdentity(a types.Account) Option {
	return func(e *Engine) { e.identity = a }
}

// WithAssets sets the asset transfer backend. Defaults to an in-memory book.
func WithAssets(t asset.Transferer) Option {
	return func(e *Engine) { e.assets = t }
}

// WithOwnership sets the registry policies resolve content holders from.
// Without it the engine's own content book is used.
func WithOwnership(r ownership.Registry) Option {
	return func(e *Engine) { e.external = r }
}

// WithEnrollmentFee sets the deposit a distributor escrows on registration.
func WithEnrollmentFee(fee types.Money) Option {
	return func(e *Engine) { e.enrollmentFee = fee }
}

// WithClock sets the time source.
func WithClock(c policy.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPolicy installs a policy built from the engine environment.
func WithPolicy(f PolicyFactory) Option {
	return func(e *Engine) { e.factories = append(e.factories, f) }
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start migrates the store and hydrates engine state from it.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Migrate(ctx); err != nil {
		return err
	}
	return e.Load(ctx)
}

// Migrate applies pending store migrations.
func (e *Engine) Migrate(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// Load hydrates engine state from an already migrated store. Calls made
// before Load fail with ErrStoreNotReady.
func (e *Engine) Load(ctx context.Context) error {
	st, err := e.store.Load(ctx)
	if err != nil {
		e.logger.Error("state load failed", "error", err)
		return err
	}

	e.mu.Lock()
	e.hydrate(st)
	e.loaded = true
	e.mu.Unlock()

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("rights engine started",
		"policies", e.registry.Count(),
		"distributors", e.distributors.Count(),
		"contents", e.contents.Count(),
		"plugins", e.plugins.Count(),
	)
	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	e.logger.Info("rights engine stopped")
	return e.store.Close()
}

// hydrate loads persisted rows. The journal is inactive so nothing is recorded.
func (e *Engine) hydrate(st *store.State) {
	e.settlement.Restore(st.Entries)
	e.enrollment.Restore(st.Entries)
	e.rates.Restore(st.Rates)
	e.distributors.Restore(st.Enrollments)
	e.policies.Restore(st.Enrollments)
	e.contents.Restore(st.Enrollments)
	e.ownership.Restore(st.Contents)

	installed := make(map[quorum.Key]bool)
	for _, p := range e.registry.List() {
		installed[quorum.KeyOf(p.Name())] = true
		if s, ok := p.(policy.Stateful); ok {
			s.Restore(policy.State{Terms: st.Terms, Grants: st.Grants})
		}
	}
	for _, r := range e.policies.Records() {
		if r.Status == quorum.Active && !installed[r.Key] {
			e.logger.Warn("active policy is not installed", "key", r.Key)
		}
	}
}

// PolicyEnv returns the environment policies are bound to.
func (e *Engine) PolicyEnv() policy.Env {
	return policy.Env{
		Orchestrator: e.identity,
		Ledger:       e.settlement,
		Ownership:    e.owners,
		Assets:       e.assets,
		Journal:      e.journal,
		Clock:        e.clock,
	}
}

// ──────────────────────────────────────────────────
// Call machinery
// ──────────────────────────────────────────────────

type callKey struct{}

// effect is an external transfer run after internal state is mutated.
type effect struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// call collects what a single engine operation does outside the journal.
type call struct {
	op      string
	effects []effect
	after   []func(ctx context.Context)
}

func (c *call) transfer(name string, do, undo func(ctx context.Context) error) {
	c.effects = append(c.effects, effect{name: name, do: do, undo: undo})
}

func (c *call) emit(fn func(ctx context.Context)) {
	c.after = append(c.after, fn)
}

// record adds a receipt to the change set.
func (e *Engine) record(r *receipt.Receipt) {
	e.journal.Record(nil, receipt.Change{Receipt: r})
}

// inCall reports whether ctx was issued by one of this engine's calls.
func (e *Engine) inCall(ctx context.Context) bool {
	owner, _ := ctx.Value(callKey{}).(*Engine)
	return owner == e
}

// exec runs fn as one atomic call. Mutations recorded in the journal are
// persisted together with fn's receipts; any error undoes all of them.
func (e *Engine) exec(ctx context.Context, op string, fn func(ctx context.Context, c *call) error) error {
	if e.inCall(ctx) || e.transferring.Load() {
		return fmt.Errorf("%w: %s", ErrReentrantCall, op)
	}

	c := &call{op: op}
	err := e.run(ctx, c, fn)
	if err != nil {
		e.logger.Debug("call rolled back", "op", op, "error", err)
		e.plugins.EmitCallFailed(ctx, op, err)
		return err
	}

	for _, fn := range c.after {
		fn(ctx)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, c *call, fn func(ctx context.Context, c *call) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return fmt.Errorf("%w: %s before Start", ErrStoreNotReady, c.op)
	}
	if err := e.journal.Begin(); err != nil {
		return err
	}
	callCtx := context.WithValue(ctx, callKey{}, e)

	if err := fn(callCtx, c); err != nil {
		e.journal.Rollback()
		return err
	}

	if err := e.commit(callCtx, c); err != nil {
		e.journal.Rollback()
		return err
	}

	changes, err := e.journal.Commit()
	if err != nil {
		return err
	}
	e.logger.Debug("call committed", "op", c.op, "changes", len(changes))
	return nil
}

// commit persists the change set and runs external transfers inside the
// store transaction. Transfers already done are reversed on failure.
func (e *Engine) commit(ctx context.Context, c *call) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		e.logger.Error("store begin failed", "op", c.op, "error", err)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	if err := tx.Apply(ctx, e.journal.Changes()); err != nil {
		_ = tx.Rollback()
		e.logger.Error("store apply failed", "op", c.op, "error", err)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	e.transferring.Store(true)
	defer e.transferring.Store(false)

	done := 0
	for _, eff := range c.effects {
		if err := eff.do(ctx); err != nil {
			_ = tx.Rollback()
			e.reverse(ctx, c.effects[:done])
			return fmt.Errorf("%s: %w", eff.name, err)
		}
		done++
	}

	if err := tx.Commit(); err != nil {
		e.reverse(ctx, c.effects)
		e.logger.Error("store commit failed", "op", c.op, "error", err)
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return nil
}

func (e *Engine) reverse(ctx context.Context, done []effect) {
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].undo == nil {
			continue
		}
		if err := done[i].undo(ctx); err != nil {
			e.logger.Error("transfer reversal failed",
				"transfer", done[i].name,
				"error", err,
			)
		}
	}
}

func (e *Engine) requireAdmin(caller types.Account) error {
	if caller.IsZero() || caller != e.admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Admin returns the admin account.
func (e *Engine) Admin() types.Account { return e.admin }

// Vault returns the asset account holding settled funds.
func (e *Engine) Vault() types.Account { return e.vault }

// Identity returns the orchestrator identity.
func (e *Engine) Identity() types.Account { return e.identity }

// Treasury returns the treasury fee registry.
func (e *Engine) Treasury() *treasury.Treasury { return e.treasury }

// Assets returns the asset transfer backend.
func (e *Engine) Assets() asset.Transferer { return e.assets }

// Ownership returns the content book.
func (e *Engine) Ownership() *ownership.Book { return e.ownership }

// Balance returns account's withdrawable balance.
func (e *Engine) Balance(account types.Account, currency types.Currency) types.Money {
	return types.NewMoney(e.settlement.Read(account, currency), currency)
}

// Escrow returns account's enrollment deposit held in escrow.
func (e *Engine) Escrow(account types.Account, currency types.Currency) types.Money {
	return types.NewMoney(e.enrollment.Read(account, currency), currency)
}

// Liabilities sums every book in currency. It equals the vault's asset
// balance after every committed call.
func (e *Engine) Liabilities(currency types.Currency) (uint64, error) {
	s, ok := e.settlement.Total(currency)
	if !ok {
		return 0, ledger.ErrOverflow
	}
	n, ok := e.enrollment.Total(currency)
	if !ok {
		return 0, ledger.ErrOverflow
	}
	sum, err := types.NewMoney(s, currency).Add(types.NewMoney(n, currency))
	if err != nil {
		return 0, ledger.ErrOverflow
	}
	return sum.Amount, nil
}

// Rates returns every treasury and distributor fee rate.
func (e *Engine) Rates() []treasury.Rate { return e.rates.All() }

// Entries returns every non-zero row of both books.
func (e *Engine) Entries() []ledger.Entry {
	return append(e.settlement.Entries(), e.enrollment.Entries()...)
}

// DistributorStatus returns the onboarding status of account.
func (e *Engine) DistributorStatus(account types.Account) quorum.Status {
	return e.distributors.Status(quorum.AccountKey(account))
}

// Distributor returns the distributor record for account.
func (e *Engine) Distributor(account types.Account) *distributor.Distributor {
	return e.directory.Get(account)
}

// PolicyStatus returns the audit status of the named policy.
func (e *Engine) PolicyStatus(name string) quorum.Status {
	return e.policies.Status(quorum.KeyOf(name))
}

// ContentStatus returns the vetting status of a content item.
func (e *Engine) ContentStatus(contentID types.ContentID) quorum.Status {
	return e.contents.Status(quorum.ContentKey(contentID))
}

// ActiveDistributors returns the number of approved distributors.
func (e *Engine) ActiveDistributors() int { return e.distributors.Count() }

// ActivePolicies returns the number of approved policies.
func (e *Engine) ActivePolicies() int { return e.policies.Count() }

// ActiveContents returns the number of approved content items.
func (e *Engine) ActiveContents() int { return e.contents.Count() }

// Enrollments returns every non-Pending record of the three workflows.
func (e *Engine) Enrollments() []quorum.Record {
	out := e.distributors.Records()
	out = append(out, e.policies.Records()...)
	return append(out, e.contents.Records()...)
}

// Policy returns an installed policy.
func (e *Engine) Policy(name string) (policy.Policy, error) {
	return e.registry.Get(name)
}

// Policies returns every installed policy.
func (e *Engine) Policies() []policy.Policy {
	return e.registry.List()
}

// Receipt returns a committed receipt.
func (e *Engine) Receipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	rid, err := id.ParseReceiptID(receiptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return e.store.GetReceipt(ctx, rid)
}

// Receipts lists committed receipts newest first.
func (e *Engine) Receipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return e.store.ListReceipts(ctx, opts)
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }
