package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditScope is what an audit session snapshots.
type AuditScope string

const (
	ScopeCollection AuditScope = "collection"
	ScopeBinder     AuditScope = "binder"
	ScopeDeck       AuditScope = "deck"
	ScopeSet        AuditScope = "set"
)

// Valid reports whether the scope is known.
func (s AuditScope) Valid() bool {
	switch s {
	case ScopeCollection, ScopeBinder, ScopeDeck, ScopeSet:
		return true
	}
	return false
}

// RequiresTarget reports whether the scope needs a deck id or set code.
func (s AuditScope) RequiresTarget() bool {
	return s == ScopeDeck || s == ScopeSet
}

// StartsVerified reports whether actual counts start at the expected value.
// Deck and set audits are spot checks; collection and binder audits are full recounts.
func (s AuditScope) StartsVerified() bool {
	return s == ScopeDeck || s == ScopeSet
}

// AuditStatus is the lifecycle state of an audit session.
type AuditStatus string

const (
	AuditStatusActive    AuditStatus = "active"
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusCancelled AuditStatus = "cancelled"
	// AuditStatusExpired marks an active session that was superseded after its expiry.
	AuditStatusExpired AuditStatus = "expired"
)

// AuditSession is a bounded reconciliation workflow.
type AuditSession struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Scope     AuditScope  `json:"type"`
	TargetID  *string     `json:"target_id"`
	Status    AuditStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	EndedAt   *time.Time  `json:"ended_at"`
}

// IsOpen reports whether the session accepts mutations at the given time.
func (s *AuditSession) IsOpen(now time.Time) bool {
	return s.Status == AuditStatusActive && now.Before(s.ExpiresAt)
}

// DeckTarget returns the deck the session audits, if it is a deck audit.
func (s *AuditSession) DeckTarget() (string, bool) {
	if s.Scope != ScopeDeck || s.TargetID == nil {
		return "", false
	}
	return *s.TargetID, true
}

// AuditItem is one snapshotted stack inside a session.
type AuditItem struct {
	ID               int64         `json:"id"`
	SessionID        uuid.UUID     `json:"session_id"`
	Identity         StackIdentity `json:"identity"`
	DeckID           *string       `json:"deck_id"`
	ExpectedQuantity int           `json:"expected_quantity"`
	ActualQuantity   int           `json:"actual_quantity"`
	Reviewed         bool          `json:"reviewed"`
	TypeLine         string        `json:"type_line,omitempty"`
	Rarity           string        `json:"rarity,omitempty"`
	Colors           []string      `json:"colors,omitempty"`
}

// Diff is actual minus expected.
func (i *AuditItem) Diff() int {
	return i.ActualQuantity - i.ExpectedQuantity
}

// Verified reports whether the recorded count matches the snapshot.
func (i *AuditItem) Verified() bool {
	return i.ActualQuantity == i.ExpectedQuantity
}

// ItemFilter narrows an item listing to one deck or one loose set group.
type ItemFilter struct {
	DeckID string
	Group  string
}

// CountUpdate is one entry of a batch count update.
type CountUpdate struct {
	ItemID   int64
	Quantity int
}

// CardAttributes are the typed catalog attributes used for grouping.
type CardAttributes struct {
	TypeLine string
	Rarity   string
	Colors   []string
}

// StatsGroupBy selects the breakdown key for audit stats.
type StatsGroupBy string

const (
	GroupBySet    StatsGroupBy = "set"
	GroupByType   StatsGroupBy = "type"
	GroupByRarity StatsGroupBy = "rarity"
	GroupByColor  StatsGroupBy = "color"
)

// Valid reports whether the grouping is known.
func (g StatsGroupBy) Valid() bool {
	switch g {
	case GroupBySet, GroupByType, GroupByRarity, GroupByColor:
		return true
	}
	return false
}

// StatsCounts aggregates one bucket of audit items.
// Verified counts items whose actual matches expected; Mismatches counts
// reviewed items that do not.
type StatsCounts struct {
	Items      int `json:"items"`
	Expected   int `json:"expected"`
	Counted    int `json:"counted"`
	Verified   int `json:"verified"`
	Reviewed   int `json:"reviewed"`
	Mismatches int `json:"mismatches"`
}

// Add counts one item into the bucket.
func (c *StatsCounts) Add(item *AuditItem) {
	c.Items++
	c.Expected += item.ExpectedQuantity
	c.Counted += item.ActualQuantity
	if item.Verified() {
		c.Verified++
	}
	if item.Reviewed {
		c.Reviewed++
		if !item.Verified() {
			c.Mismatches++
		}
	}
}

// GroupStats is a named bucket of StatsCounts.
type GroupStats struct {
	Key string `json:"key"`
	StatsCounts
}

// AuditStats is the aggregated view of a session. Decks break down items
// that sit in a deck; Groups break down the loose items by GroupBy.
type AuditStats struct {
	SessionID  uuid.UUID    `json:"session_id"`
	GroupBy    StatsGroupBy `json:"group_by"`
	Totals     StatsCounts  `json:"totals"`
	Decks      []GroupStats `json:"decks"`
	Loose      StatsCounts  `json:"loose"`
	Groups     []GroupStats `json:"groups"`
	Mismatched []AuditItem  `json:"mismatched"`
}

// ItemOutcomeStatus describes what finalize did with one item.
type ItemOutcomeStatus string

const (
	OutcomeApplied ItemOutcomeStatus = "applied"
	OutcomePartial ItemOutcomeStatus = "partial"
	OutcomeSkipped ItemOutcomeStatus = "skipped"
)

// ItemOutcome reports the reconciliation of one audit item.
type ItemOutcome struct {
	ItemID       int64             `json:"item_id"`
	Name         string            `json:"name"`
	DeckID       string            `json:"deck_id"`
	Diff         int               `json:"diff"`
	Moved        int               `json:"moved"`
	Materialized int               `json:"materialized"`
	Status       ItemOutcomeStatus `json:"status"`
	Error        string            `json:"error,omitempty"`
}

// FinalizeReport lists the outcomes of every reconciled item.
type FinalizeReport struct {
	SessionID uuid.UUID     `json:"session_id"`
	Outcomes  []ItemOutcome `json:"outcomes"`
	Applied   int           `json:"applied"`
	Failed    int           `json:"failed"`
}

// FoilSwapResult carries both audit items touched by a foil swap.
type FoilSwapResult struct {
	Nonfoil *AuditItem `json:"nonfoil"`
	Foil    *AuditItem `json:"foil"`
}
