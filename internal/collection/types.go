package collection

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// ListFilter narrows a collection listing. Nil fields do not filter.
type ListFilter struct {
	Location *domain.Location
	Name     string
	Wishlist *bool
	Limit    int
}

// NewStack describes copies being added to the collection. Missing identity
// fields are filled from the catalog.
type NewStack struct {
	CatalogID       string
	Name            string
	SetCode         string
	CollectorNumber string
	Finish          domain.Finish
	Location        domain.Location
	Quantity        int
	Tags            []string
	PricePaid       decimal.NullDecimal
	IsWishlist      bool
	Metadata        json.RawMessage
}

func (n NewStack) fragment() domain.IdentityFragment {
	return domain.IdentityFragment{
		CatalogID:       n.CatalogID,
		Name:            n.Name,
		SetCode:         n.SetCode,
		CollectorNumber: n.CollectorNumber,
		Finish:          n.Finish,
	}
}

// StackPatch changes the mutable attributes of one stack. A quantity of 0
// removes the stack.
type StackPatch struct {
	Tags       *[]string
	PricePaid  *decimal.NullDecimal
	IsWishlist *bool
	Quantity   *int
}

// Empty reports whether the patch changes nothing
func (p StackPatch) Empty() bool {
	return p.Tags == nil && p.PricePaid == nil && p.IsWishlist == nil && p.Quantity == nil
}

// MoveRequest relocates copies of a card between the binder and decks
type MoveRequest struct {
	CatalogID  string
	Name       string
	Finish     domain.Finish
	From       domain.Location
	To         domain.Location
	Quantity   int
	Preference domain.MatchPreference
}
