package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

// TermsRecord is one persisted terms row. Holder-keyed terms use ContentID 0.
type TermsRecord struct {
	Policy    string          `json:"policy"`
	Holder    types.Account   `json:"holder"`
	ContentID types.ContentID `json:"content_id"`
	Terms     Terms           `json:"terms"`
}

// TermsChange records new terms.
type TermsChange struct {
	TermsRecord
}

// Kind implements journal.Change.
func (TermsChange) Kind() string { return "policy.terms" }

type termsKey struct {
	holder    types.Account
	contentID types.ContentID
}

// TermsBook stores the terms of one policy.
type TermsBook struct {
	mu      sync.RWMutex
	policy  string
	terms   map[termsKey]Terms
	journal *journal.Journal
}

// NewTermsBook creates an empty terms book.
func NewTermsBook(policy string, j *journal.Journal) *TermsBook {
	return &TermsBook{
		policy:  policy,
		terms:   make(map[termsKey]Terms),
		journal: j,
	}
}

// Get returns the terms stored for (holder, contentID).
func (b *TermsBook) Get(holder types.Account, contentID types.ContentID) (Terms, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.terms[termsKey{holder, contentID}]
	if !ok {
		if contentID == 0 {
			return Terms{}, fmt.Errorf("%w: %s has none for %s", ErrNoTerms, b.policy, holder)
		}
		return Terms{}, fmt.Errorf("%w: %s has none for content %s", ErrNoTerms, b.policy, contentID)
	}
	return t, nil
}

// Put stores terms for (holder, contentID). The allow-list is not part of
// stored terms.
func (b *TermsBook) Put(holder types.Account, contentID types.ContentID, t Terms) {
	if t.Gate != nil {
		g := *t.Gate
		g.Allow = nil
		t.Gate = &g
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := termsKey{holder, contentID}
	prev, existed := b.terms[k]
	b.terms[k] = t

	b.journal.Record(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existed {
			b.terms[k] = prev
		} else {
			delete(b.terms, k)
		}
	}, TermsChange{TermsRecord{Policy: b.policy, Holder: holder, ContentID: contentID, Terms: t}})
}

// All returns every row ordered by holder then content.
func (b *TermsBook) All() []TermsRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TermsRecord, 0, len(b.terms))
	for k, t := range b.terms {
		out = append(out, TermsRecord{Policy: b.policy, Holder: k.holder, ContentID: k.contentID, Terms: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Holder != out[j].Holder {
			return out[i].Holder < out[j].Holder
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out
}

// Restore loads the persisted rows that belong to this policy.
func (b *TermsBook) Restore(records []TermsRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range records {
		if r.Policy != b.policy {
			continue
		}
		b.terms[termsKey{r.Holder, r.ContentID}] = r.Terms
	}
}
