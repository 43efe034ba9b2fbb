package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Finish is the surface treatment of a printing.
type Finish string

const (
	FinishNonfoil Finish = "nonfoil"
	FinishFoil    Finish = "foil"
	FinishEtched  Finish = "etched"
)

// IsPremium reports whether the finish is foil or etched.
func (f Finish) IsPremium() bool {
	return f == FinishFoil || f == FinishEtched
}

// Valid reports whether the finish is one of the known values.
func (f Finish) Valid() bool {
	switch f {
	case FinishNonfoil, FinishFoil, FinishEtched:
		return true
	}
	return false
}

// NormalizeFinish lowercases the finish and defaults empty values to nonfoil.
func NormalizeFinish(s string) Finish {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FinishNonfoil
	}
	return Finish(s)
}

// StackIdentity describes one printing of a card. Two stacks with the same
// identity, owner, location and wishlist flag are the same pool.
type StackIdentity struct {
	CatalogID       string `json:"catalog_id"`
	Name            string `json:"name"`
	SetCode         string `json:"set_code"`
	CollectorNumber string `json:"collector_number"`
	Finish          Finish `json:"finish"`
}

// SamePrinting reports whether both identities refer to the same catalog entry and finish.
func (id StackIdentity) SamePrinting(other StackIdentity) bool {
	return id.CatalogID == other.CatalogID && id.Finish == other.Finish
}

// FoldName normalizes a card name for case-insensitive comparison.
// A Caser is stateful, so one is built per call.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Location is either the unassigned pool or a deck.
// The zero value is the unassigned pool.
type Location struct {
	DeckID string
}

// Unassigned is the binder/pool location.
var Unassigned = Location{}

// LocationPrefixDeck prefixes deck locations in their string form.
const LocationPrefixDeck = "deck:"

// DeckLocation returns the location of the given deck.
func DeckLocation(deckID string) Location {
	return Location{DeckID: deckID}
}

// IsDeck reports whether the location is a deck.
func (l Location) IsDeck() bool {
	return l.DeckID != ""
}

// DeckIDPtr returns the deck id as a nullable column value.
func (l Location) DeckIDPtr() *string {
	if l.DeckID == "" {
		return nil
	}
	id := l.DeckID
	return &id
}

func (l Location) String() string {
	if l.IsDeck() {
		return LocationPrefixDeck + l.DeckID
	}
	return "unassigned"
}

// ParseLocation accepts "unassigned", "binder", "" or "deck:<id>".
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "unassigned", "binder", "null":
		return Unassigned, nil
	}
	if strings.HasPrefix(s, LocationPrefixDeck) {
		id := strings.TrimPrefix(s, LocationPrefixDeck)
		if id != "" {
			return DeckLocation(id), nil
		}
	}
	return Location{}, fmt.Errorf("%w: unknown location %q", ErrInvalidInput, s)
}

// LocationFromColumn converts a nullable deck id column into a Location.
func LocationFromColumn(deckID *string) Location {
	if deckID == nil {
		return Unassigned
	}
	return DeckLocation(*deckID)
}

func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Location) UnmarshalText(b []byte) error {
	parsed, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// CardStack is N identical physical units of one printing owned by one user in one location.
type CardStack struct {
	ID         int64               `json:"id"`
	OwnerID    string              `json:"owner_id"`
	Identity   StackIdentity       `json:"identity"`
	Location   Location            `json:"location"`
	Quantity   int                 `json:"quantity"`
	Tags       []string            `json:"tags"`
	PricePaid  decimal.NullDecimal `json:"price_paid"`
	AddedAt    time.Time           `json:"added_at"`
	IsWishlist bool                `json:"is_wishlist"`
	Metadata   json.RawMessage     `json:"metadata,omitempty"`
}

// MatchPreference orders loose-match candidates by finish.
type MatchPreference string

const (
	PreferNone     MatchPreference = "none"
	PreferPremium  MatchPreference = "preferPremium"
	PreferStandard MatchPreference = "preferStandard"
)

// ShortfallPolicy decides what happens when candidate stacks run out.
type ShortfallPolicy string

const (
	// ShortfallFail reports ErrInsufficientSource and keeps partial progress.
	ShortfallFail ShortfallPolicy = "fail"
	// ShortfallMaterialize resolves the identity and creates the remainder in the destination.
	ShortfallMaterialize ShortfallPolicy = "materialize"
)

// StackQuery selects stacks for one owner. Empty fields do not filter.
type StackQuery struct {
	OwnerID   string
	CatalogID string
	// Name matches case-insensitively on the whole name.
	Name    string
	Finish  Finish
	SetCode string
	// Location filters on a single location when set.
	Location *Location
	// Wishlist filters on the wishlist flag when set.
	Wishlist *bool
	// NameContains is an ILIKE filter used by listing.
	NameContains string
	NewestFirst  bool
	Limit        int
	ForUpdate    bool
}

// IdentityFragment is a partial catalog reference. Any subset of fields may be set.
type IdentityFragment struct {
	CatalogID       string `json:"catalog_id"`
	Name            string `json:"name"`
	SetCode         string `json:"set_code"`
	CollectorNumber string `json:"collector_number"`
	Finish          Finish `json:"finish"`
}

// FragmentOf converts a full identity back into a lookup fragment.
func FragmentOf(id StackIdentity) IdentityFragment {
	return IdentityFragment{
		CatalogID:       id.CatalogID,
		Name:            id.Name,
		SetCode:         id.SetCode,
		CollectorNumber: id.CollectorNumber,
		Finish:          id.Finish,
	}
}
