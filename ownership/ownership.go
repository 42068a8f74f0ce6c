// Package ownership records who holds each content item and which
// distributor has custody of it.
//
// The authoritative registry is an external collaborator; Book is the
// in-process implementation the engine ships with.
package ownership

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

var (
	// ErrUnknownContent is returned for content that was never registered.
	ErrUnknownContent = errors.New("ownership: unknown content")
	// ErrContentExists is returned when registering an ID that is taken.
	ErrContentExists = errors.New("ownership: content already registered")
	// ErrNotHolder is returned when a caller acts on content it does not hold.
	ErrNotHolder = errors.New("ownership: caller is not the holder")
)

// Registry resolves a content item to its holder.
type Registry interface {
	OwnerOf(contentID types.ContentID) (types.Account, error)
}

// Record is one content item's ownership row.
type Record struct {
	ContentID types.ContentID `json:"content_id"`
	Holder    types.Account   `json:"holder"`
	Custodian types.Account   `json:"custodian,omitempty"`
	// Payload is an opaque reference to the content, never interpreted.
	Payload []byte `json:"payload,omitempty"`
}

// RecordChange records a new ownership row.
type RecordChange struct {
	Record
}

// Kind implements journal.Change.
func (RecordChange) Kind() string { return "ownership.record" }

// Book is an in-memory Registry.
type Book struct {
	mu      sync.RWMutex
	records map[types.ContentID]Record
	journal *journal.Journal
}

// NewBook creates an empty registry.
func NewBook(j *journal.Journal) *Book {
	return &Book{
		records: make(map[types.ContentID]Record),
		journal: j,
	}
}

var _ Registry = (*Book)(nil)

// OwnerOf returns the holder of contentID.
func (b *Book) OwnerOf(contentID types.ContentID) (types.Account, error) {
	r, err := b.Get(contentID)
	if err != nil {
		return "", err
	}
	return r.Holder, nil
}

// Get returns the ownership row for contentID.
func (b *Book) Get(contentID types.ContentID) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.records[contentID]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownContent, contentID)
	}
	return r, nil
}

// Register records holder as the owner of a new content item.
func (b *Book) Register(contentID types.ContentID, holder types.Account, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[contentID]; ok {
		return fmt.Errorf("%w: %s", ErrContentExists, contentID)
	}
	b.write(Record{ContentID: contentID, Holder: holder, Payload: payload})
	return nil
}

// Delegate sets the custodian of content held by holder. An empty custodian
// clears custody.
func (b *Book) Delegate(contentID types.ContentID, holder, custodian types.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.records[contentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContent, contentID)
	}
	if r.Holder != holder {
		return fmt.Errorf("%w: %s does not hold %s", ErrNotHolder, holder, contentID)
	}
	r.Custodian = custodian
	b.write(r)
	return nil
}

// All returns every row ordered by content ID.
func (b *Book) All() []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Record, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out
}

// Restore loads persisted rows without recording changes.
func (b *Book) Restore(records []Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range records {
		b.records[r.ContentID] = r
	}
}

// write must be called with mu held.
func (b *Book) write(r Record) {
	prev, existed := b.records[r.ContentID]
	b.records[r.ContentID] = r

	b.journal.Record(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existed {
			b.records[r.ContentID] = prev
		} else {
			delete(b.records, r.ContentID)
		}
	}, RecordChange{r})
}
