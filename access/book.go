package access

import (
	"sort"
	"sync"
	"time"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

type grantKey struct {
	account types.Account
	subject Subject
}

// Book stores the grants issued by one policy. Grants are created or
// extended, never deleted; only permanent grants can be revoked.
type Book struct {
	mu      sync.RWMutex
	policy  string
	grants  map[grantKey]Grant
	journal *journal.Journal
}

// NewBook creates an empty grant book for policy.
func NewBook(policy string, j *journal.Journal) *Book {
	return &Book{
		policy:  policy,
		grants:  make(map[grantKey]Grant),
		journal: j,
	}
}

// Get returns the grant for (account, subject).
func (b *Book) Get(account types.Account, subject Subject) (Grant, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	g, ok := b.grants[grantKey{account, subject}]
	return g, ok
}

// ValidAt reports whether account holds a grant on subject at now.
func (b *Book) ValidAt(account types.Account, subject Subject, now time.Time) bool {
	g, ok := b.Get(account, subject)
	return ok && g.ValidAt(now)
}

// Extend adds d to the grant. A live grant is extended from its expiry, an
// expired or missing one from now.
func (b *Book) Extend(account types.Account, subject Subject, now time.Time, d time.Duration) Grant {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := grantKey{account, subject}
	g, ok := b.grants[k]
	if ok && g.Permanent {
		return g
	}
	base := now
	if ok && g.Expiry.After(now) {
		base = g.Expiry
	}
	g = Grant{Policy: b.policy, Account: account, Subject: subject, Expiry: base.Add(d)}
	b.write(k, g)
	return g
}

// Allow issues a permanent grant.
func (b *Book) Allow(account types.Account, subject Subject) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write(grantKey{account, subject}, Grant{Policy: b.policy, Account: account, Subject: subject, Permanent: true})
}

// Disallow revokes a permanent grant and returns it. Timed grants are left
// to expire and report false.
func (b *Book) Disallow(account types.Account, subject Subject) (Grant, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := grantKey{account, subject}
	g, ok := b.grants[k]
	if !ok || !g.Permanent {
		return Grant{}, false
	}
	g.Permanent = false
	g.Revoked = true
	b.write(k, g)
	return g, true
}

// All returns the book's grants ordered by account.
func (b *Book) All() []Grant {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Grant, 0, len(b.grants))
	for _, g := range b.grants {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		if out[i].Subject.Holder != out[j].Subject.Holder {
			return out[i].Subject.Holder < out[j].Subject.Holder
		}
		return out[i].Subject.ContentID < out[j].Subject.ContentID
	})
	return out
}

// Restore loads the persisted grants that belong to this book.
func (b *Book) Restore(grants []Grant) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, g := range grants {
		if g.Policy != b.policy {
			continue
		}
		b.grants[grantKey{g.Account, g.Subject}] = g
	}
}

// write must be called with mu held.
func (b *Book) write(k grantKey, g Grant) {
	prev, existed := b.grants[k]
	b.grants[k] = g

	b.journal.Record(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existed {
			b.grants[k] = prev
		} else {
			delete(b.grants, k)
		}
	}, GrantChange{g})
}
