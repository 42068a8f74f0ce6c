// Package quorum implements the enrollment workflow shared by distributor
// onboarding, policy audit and content vetting.
//
// A Machine tracks one status per key. Keys never seen before read as
// Pending. The machine holds no business data: deposits, fees and terms live
// with the subsystem that owns the machine and are joined at the call site.
package quorum

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

var (
	// ErrNotWaitingApproval is returned when approve or quit targets a key
	// that is not Waiting.
	ErrNotWaitingApproval = errors.New("quorum: not waiting approval")
	// ErrInvalidInactiveState is returned when a key is in a state the
	// requested transition cannot leave.
	ErrInvalidInactiveState = errors.New("quorum: invalid inactive state")
	// ErrAlreadyEnrolled is returned when register targets a Waiting or Active key.
	ErrAlreadyEnrolled = errors.New("quorum: already enrolled")
)

// Status is the enrollment state of a key.
type Status uint8

// Enrollment states. Pending is the zero value.
const (
	Pending Status = iota
	Waiting
	Active
	Blocked
)

var statusNames = [...]string{"pending", "waiting", "active", "blocked"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return Pending, fmt.Errorf("quorum: unknown status %q", s)
}

// Key is the normalized identifier of an enrolled entity.
type Key uint64

// KeyOf hashes a string identifier into a Key.
func KeyOf(s string) Key { return Key(xxhash.Sum64String(s)) }

// AccountKey normalizes an account into a Key.
func AccountKey(a types.Account) Key { return KeyOf(string(a)) }

// ContentKey maps a content ID onto a Key.
func ContentKey(id types.ContentID) Key { return Key(id) }

func (k Key) String() string { return strconv.FormatUint(uint64(k), 10) }

// Domain names a machine instance.
type Domain string

// Machine instances used by the engine.
const (
	Distributors Domain = "distributor"
	Policies     Domain = "policy"
	Contents     Domain = "content"
)

// Op is a requested transition.
type Op string

// Transitions.
const (
	OpRegister Op = "register"
	OpApprove  Op = "approve"
	OpReject   Op = "reject"
	OpQuit     Op = "quit"
)

// Transition is one row of a transition table.
type Transition struct {
	From []Status
	To   Status
	// Err is returned when the current status is not in From.
	Err error
}

func (t Transition) allows(s Status) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

// Table configures the transitions a machine accepts.
type Table map[Op]Transition

// NewTable returns the standard table with reject accepted from rejectFrom.
func NewTable(rejectFrom ...Status) Table {
	return Table{
		OpRegister: {From: []Status{Pending}, To: Waiting, Err: ErrAlreadyEnrolled},
		OpApprove:  {From: []Status{Waiting}, To: Active, Err: ErrNotWaitingApproval},
		OpReject:   {From: rejectFrom, To: Blocked, Err: ErrInvalidInactiveState},
		OpQuit:     {From: []Status{Waiting}, To: Pending, Err: ErrNotWaitingApproval},
	}
}

// RevocationTable rejects only Active keys. Distributors use it: an
// application is withdrawn with quit, an approval is revoked with reject.
func RevocationTable() Table { return NewTable(Active) }

// AuditTable rejects Waiting or Active keys. Policy audit and content
// vetting use it.
func AuditTable() Table { return NewTable(Waiting, Active) }

// TransitionError describes a refused transition.
type TransitionError struct {
	Domain Domain
	Op     Op
	Key    Key
	From   Status
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s %s %s from %s", e.Err, e.Domain, e.Op, e.Key, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// Record is the persisted status of one key.
type Record struct {
	Domain Domain `json:"domain"`
	Key    Key    `json:"key"`
	Status Status `json:"status"`
}

// StatusChange records a new status for a key.
type StatusChange struct {
	Record
}

// Kind implements journal.Change.
func (StatusChange) Kind() string { return "quorum.status" }

// Machine is one enrollment workflow instance.
type Machine struct {
	mu      sync.RWMutex
	domain  Domain
	table   Table
	status  map[Key]Status
	active  int
	journal *journal.Journal
}

// New creates a machine with its own storage.
func New(domain Domain, table Table, j *journal.Journal) *Machine {
	return &Machine{
		domain:  domain,
		table:   table,
		status:  make(map[Key]Status),
		journal: j,
	}
}

// Domain returns the machine's instance name.
func (m *Machine) Domain() Domain { return m.domain }

// Status returns the status of key, Pending when unseen.
func (m *Machine) Status(key Key) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[key]
}

// IsActive reports whether key is Active.
func (m *Machine) IsActive(key Key) bool { return m.Status(key) == Active }

// Count returns the number of Active keys.
func (m *Machine) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Register submits key for approval.
func (m *Machine) Register(key Key) error { return m.apply(OpRegister, key) }

// Approve activates a Waiting key.
func (m *Machine) Approve(key Key) error { return m.apply(OpApprove, key) }

// Reject blocks key. Accepted source states come from the table.
func (m *Machine) Reject(key Key) error { return m.apply(OpReject, key) }

// Quit withdraws a Waiting application back to Pending.
func (m *Machine) Quit(key Key) error { return m.apply(OpQuit, key) }

func (m *Machine) apply(op Op, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.table[op]
	if !ok {
		return fmt.Errorf("quorum: %s has no %s transition", m.domain, op)
	}

	from := m.status[key]
	if !t.allows(from) {
		err := t.Err
		if op == OpRegister && from == Blocked {
			err = ErrInvalidInactiveState
		}
		return &TransitionError{Domain: m.domain, Op: op, Key: key, From: from, Err: err}
	}

	m.set(key, t.To)
	return nil
}

// set must be called with mu held.
func (m *Machine) set(key Key, to Status) {
	prev, existed := m.status[key]
	m.write(key, to)

	m.journal.Record(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existed {
			m.write(key, prev)
		} else {
			m.write(key, Pending)
			delete(m.status, key)
		}
	}, StatusChange{Record{Domain: m.domain, Key: key, Status: to}})
}

func (m *Machine) write(key Key, to Status) {
	if m.status[key] == Active {
		m.active--
	}
	m.status[key] = to
	if to == Active {
		m.active++
	}
}

// Records returns every non-Pending key ordered by key.
func (m *Machine) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.status))
	for k, s := range m.status {
		if s == Pending {
			continue
		}
		out = append(out, Record{Domain: m.domain, Key: k, Status: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Restore loads persisted records without recording changes.
func (m *Machine) Restore(records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if r.Domain != m.domain {
			continue
		}
		m.write(r.Key, r.Status)
	}
}
