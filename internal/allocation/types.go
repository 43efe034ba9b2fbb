package allocation

import "github.com/osse101/CardVault_Go/internal/domain"

// RelocateRequest asks for Quantity units matching Match to move From -> To
type RelocateRequest struct {
	OwnerID    string
	Match      domain.StackIdentity
	From       domain.Location
	To         domain.Location
	Quantity   int
	Preference domain.MatchPreference
	Shortfall  domain.ShortfallPolicy
}

// Tier is the matcher stage that selected a candidate
type Tier int

const (
	// TierExact matches catalog id and finish
	TierExact Tier = iota + 1
	// TierIdentity matches catalog id in any finish
	TierIdentity
	// TierName matches the folded card name in any printing
	TierName
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierIdentity:
		return "identity"
	case TierName:
		return "name"
	}
	return "none"
}

// StepKind is the storage operation a step performed
type StepKind string

const (
	// StepMove relocated a whole row in place
	StepMove StepKind = "move"
	// StepMerge folded a whole row into an existing destination row
	StepMerge StepKind = "merge"
	// StepSplit took part of a row into the destination
	StepSplit StepKind = "split"
	// StepMaterialize created units that had no source
	StepMaterialize StepKind = "materialize"
)

// Step records one unit transfer made by Relocate
type Step struct {
	Kind          StepKind             `json:"kind"`
	Tier          Tier                 `json:"tier,omitempty"`
	SourceID      int64                `json:"source_id,omitempty"`
	DestinationID int64                `json:"destination_id"`
	Identity      domain.StackIdentity `json:"identity"`
	Quantity      int                  `json:"quantity"`
}

// RelocateResult summarizes a relocation
type RelocateResult struct {
	Moved        int    `json:"moved"`
	Materialized int    `json:"materialized"`
	Steps        []Step `json:"steps"`
}

// Total is the number of units that reached the destination
func (r *RelocateResult) Total() int {
	return r.Moved + r.Materialized
}
