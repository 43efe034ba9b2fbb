package allocation

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Resolver completes an identity before units are materialized
type Resolver interface {
	Resolve(ctx context.Context, fragment domain.IdentityFragment) (domain.StackIdentity, error)
}

// Engine moves card units between locations without fragmenting stacks
type Engine struct {
	resolver Resolver
}

// NewEngine creates an engine. The resolver is only consulted for materialization.
func NewEngine(resolver Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Relocate moves req.Quantity units matching req.Match from req.From to req.To
// using the caller's stacks store, which should be transactional. On
// ErrInsufficientSource the partial result is returned alongside the error
// and the moves already made are left in the caller's transaction.
func (e *Engine) Relocate(ctx context.Context, stacks repository.Stacks, req RelocateRequest) (*RelocateResult, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	result := &RelocateResult{}
	remaining := req.Quantity
	seen := make(map[int64]bool)

	for _, tier := range tiersFor(req) {
		if remaining == 0 {
			break
		}
		candidates, err := stacks.FindStacks(ctx, candidateQuery(req, tier))
		if err != nil {
			return result, fmt.Errorf("%s: %w", ErrMsgFindCandidates, err)
		}
		candidates = slices.DeleteFunc(candidates, func(c domain.CardStack) bool { return seen[c.ID] })
		orderCandidates(candidates, req.Preference)

		for i := range candidates {
			if remaining == 0 {
				break
			}
			c := &candidates[i]
			seen[c.ID] = true
			take := min(c.Quantity, remaining)

			step, err := transfer(ctx, stacks, c, take, req.To)
			if err != nil {
				return result, fmt.Errorf("%s %d: %w", ErrMsgTransferStack, c.ID, err)
			}
			step.Tier = tier
			result.Steps = append(result.Steps, step)
			result.Moved += take
			remaining -= take
		}
	}

	if remaining > 0 {
		if req.Shortfall == domain.ShortfallFail {
			log.Debug(LogMsgShortfall,
				"catalog_id", req.Match.CatalogID,
				"name", req.Match.Name,
				"requested", req.Quantity,
				"moved", result.Moved)
			return result, fmt.Errorf("%w: requested %d of %q, found %d in %s",
				domain.ErrInsufficientSource, req.Quantity, displayName(req.Match), result.Moved, req.From)
		}

		step, err := e.materialize(ctx, stacks, req, remaining)
		if err != nil {
			return result, err
		}
		result.Steps = append(result.Steps, step)
		result.Materialized = remaining
		log.Warn(LogMsgMaterialized,
			"catalog_id", step.Identity.CatalogID,
			"name", step.Identity.Name,
			"finish", step.Identity.Finish,
			"location", req.To.String(),
			"quantity", remaining)
	}

	if err := checkConservation(req, result); err != nil {
		log.Error(LogMsgConservationViolated,
			"invariant", InvariantConservation,
			"requested", req.Quantity,
			"moved", result.Moved,
			"materialized", result.Materialized,
			"steps", len(result.Steps))
		return result, err
	}
	return result, nil
}

func normalize(req RelocateRequest) (RelocateRequest, error) {
	if req.Quantity < 1 {
		return req, fmt.Errorf("%w: quantity must be at least 1, got %d", domain.ErrInvalidQuantity, req.Quantity)
	}
	if req.From == req.To {
		return req, fmt.Errorf("%w: %s", domain.ErrSameLocation, req.From)
	}
	if req.OwnerID == "" {
		return req, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if req.Match.CatalogID == "" && req.Match.Name == "" {
		return req, fmt.Errorf("%w: a catalog id or name is required", domain.ErrInvalidInput)
	}
	if req.Match.Finish == "" {
		req.Match.Finish = domain.FinishNonfoil
	}
	if !req.Match.Finish.Valid() {
		return req, fmt.Errorf("%w: unknown finish %q", domain.ErrInvalidInput, req.Match.Finish)
	}

	switch req.Preference {
	case "":
		req.Preference = domain.PreferNone
	case domain.PreferNone, domain.PreferPremium, domain.PreferStandard:
	default:
		return req, fmt.Errorf("%w: unknown preference %q", domain.ErrInvalidInput, req.Preference)
	}
	switch req.Shortfall {
	case "":
		req.Shortfall = domain.ShortfallFail
	case domain.ShortfallFail, domain.ShortfallMaterialize:
	default:
		return req, fmt.Errorf("%w: unknown shortfall policy %q", domain.ErrInvalidInput, req.Shortfall)
	}
	return req, nil
}

// tiersFor lists the matcher stages that apply to the request, in order.
// Under preferPremium the exact tier is skipped for a standard finish so that
// premium copies of the printing are taken first.
func tiersFor(req RelocateRequest) []Tier {
	var tiers []Tier
	if req.Match.CatalogID != "" {
		if !(req.Preference == domain.PreferPremium && !req.Match.Finish.IsPremium()) {
			tiers = append(tiers, TierExact)
		}
		tiers = append(tiers, TierIdentity)
	}
	if req.Match.Name != "" {
		tiers = append(tiers, TierName)
	}
	return tiers
}

func candidateQuery(req RelocateRequest, tier Tier) domain.StackQuery {
	from := req.From
	notWishlist := false
	q := domain.StackQuery{
		OwnerID:   req.OwnerID,
		Location:  &from,
		Wishlist:  &notWishlist,
		ForUpdate: true,
	}
	switch tier {
	case TierExact:
		q.CatalogID = req.Match.CatalogID
		q.Finish = req.Match.Finish
	case TierIdentity:
		q.CatalogID = req.Match.CatalogID
	case TierName:
		q.Name = req.Match.Name
	}
	return q
}

// orderCandidates sorts by finish preference, then quantity ascending, then id
func orderCandidates(candidates []domain.CardStack, pref domain.MatchPreference) {
	slices.SortFunc(candidates, func(a, b domain.CardStack) int {
		return cmp.Or(
			cmp.Compare(finishRank(a.Identity.Finish, pref), finishRank(b.Identity.Finish, pref)),
			cmp.Compare(a.Quantity, b.Quantity),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func finishRank(f domain.Finish, pref domain.MatchPreference) int {
	switch pref {
	case domain.PreferPremium:
		if f.IsPremium() {
			return 0
		}
		return 1
	case domain.PreferStandard:
		if f == domain.FinishNonfoil {
			return 0
		}
		return 1
	}
	return 0
}

func (e *Engine) materialize(ctx context.Context, stacks repository.Stacks, req RelocateRequest, n int) (Step, error) {
	identity := req.Match
	if e.resolver != nil {
		resolved, err := e.resolver.Resolve(ctx, domain.FragmentOf(req.Match))
		if err != nil {
			return Step{}, fmt.Errorf("%s: %w", ErrMsgMaterializeStack, err)
		}
		identity = resolved
	} else if identity.CatalogID == "" {
		return Step{}, fmt.Errorf("%s: %w: %s", ErrMsgMaterializeStack, domain.ErrIdentityNotFound, displayName(req.Match))
	}

	stack := &domain.CardStack{
		OwnerID:  req.OwnerID,
		Identity: identity,
		Location: req.To,
		Quantity: n,
		Tags:     []string{},
	}
	if err := stacks.UpsertStack(ctx, stack); err != nil {
		return Step{}, fmt.Errorf("%s: %w", ErrMsgMaterializeStack, err)
	}
	return Step{
		Kind:          StepMaterialize,
		DestinationID: stack.ID,
		Identity:      identity,
		Quantity:      n,
	}, nil
}

func checkConservation(req RelocateRequest, result *RelocateResult) error {
	stepped := 0
	for _, s := range result.Steps {
		stepped += s.Quantity
	}
	if result.Total() != req.Quantity || stepped != req.Quantity {
		return fmt.Errorf("%w: requested %d, moved %d, materialized %d, stepped %d",
			domain.ErrInvariantViolation, req.Quantity, result.Moved, result.Materialized, stepped)
	}
	return nil
}

func displayName(id domain.StackIdentity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.CatalogID
}
