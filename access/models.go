// Package access tracks which accounts may consume which content and until when.
package access

import (
	"time"

	"github.com/xraph/rights/types"
)

// Subject is what a grant covers: every item of a holder, or a single item.
type Subject struct {
	Holder    types.Account   `json:"holder,omitempty"`
	ContentID types.ContentID `json:"content_id,omitempty"`
}

// HolderSubject covers every content item of holder.
func HolderSubject(holder types.Account) Subject { return Subject{Holder: holder} }

// ContentSubject covers one content item.
func ContentSubject(contentID types.ContentID) Subject { return Subject{ContentID: contentID} }

// Grant lets Account consume Subject under Policy until Expiry. Permanent
// grants back allow-lists and never expire.
type Grant struct {
	Policy    string        `json:"policy"`
	Account   types.Account `json:"account"`
	Subject   Subject       `json:"subject"`
	Expiry    time.Time     `json:"expiry"`
	Permanent bool          `json:"permanent,omitempty"`
	// Revoked marks a removed allow-list entry in a change set.
	Revoked bool `json:"revoked,omitempty"`
}

// ValidAt reports whether the grant covers the instant now.
func (g Grant) ValidAt(now time.Time) bool {
	if g.Revoked {
		return false
	}
	return g.Permanent || !now.After(g.Expiry)
}

// GrantChange records a new or revoked grant.
type GrantChange struct {
	Grant
}

// Kind implements journal.Change.
func (GrantChange) Kind() string { return "access.grant" }

// Result is the answer to an access check.
type Result struct {
	Allowed   bool            `json:"allowed"`
	Policy    string          `json:"policy"`
	Account   types.Account   `json:"account"`
	ContentID types.ContentID `json:"content_id"`
	Expiry    *time.Time      `json:"expiry,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}
