package audit

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/osse101/CardVault_Go/internal/domain"
)

// Stats aggregates the session's items. Decks are broken down by deck id and
// loose items by groupBy, which defaults to set.
func (s *service) Stats(ctx context.Context, ownerID string, id uuid.UUID, groupBy domain.StatsGroupBy) (*domain.AuditStats, error) {
	if groupBy == "" {
		groupBy = domain.GroupBySet
	}
	if !groupBy.Valid() {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, ErrMsgUnknownGroupBy, groupBy)
	}

	session, err := s.repo.GetSession(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, session.ID, domain.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgListItems, err)
	}

	return buildStats(session.ID, groupBy, items), nil
}

func buildStats(sessionID uuid.UUID, groupBy domain.StatsGroupBy, items []domain.AuditItem) *domain.AuditStats {
	stats := &domain.AuditStats{
		SessionID:  sessionID,
		GroupBy:    groupBy,
		Decks:      []domain.GroupStats{},
		Groups:     []domain.GroupStats{},
		Mismatched: []domain.AuditItem{},
	}
	decks := make(map[string]*domain.StatsCounts)
	groups := make(map[string]*domain.StatsCounts)

	for i := range items {
		item := &items[i]
		stats.Totals.Add(item)
		if item.Reviewed && !item.Verified() {
			stats.Mismatched = append(stats.Mismatched, *item)
		}

		if item.DeckID != nil {
			bucket(decks, *item.DeckID).Add(item)
			continue
		}
		stats.Loose.Add(item)
		bucket(groups, groupKey(groupBy, item)).Add(item)
	}

	stats.Decks = flatten(decks)
	stats.Groups = flatten(groups)
	return stats
}

func bucket(m map[string]*domain.StatsCounts, key string) *domain.StatsCounts {
	c, ok := m[key]
	if !ok {
		c = &domain.StatsCounts{}
		m[key] = c
	}
	return c
}

func flatten(m map[string]*domain.StatsCounts) []domain.GroupStats {
	out := make([]domain.GroupStats, 0, len(m))
	for key, c := range m {
		out = append(out, domain.GroupStats{Key: key, StatsCounts: *c})
	}
	slices.SortFunc(out, func(a, b domain.GroupStats) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

func groupKey(groupBy domain.StatsGroupBy, item *domain.AuditItem) string {
	var key string
	switch groupBy {
	case domain.GroupByType:
		key = primaryType(item.TypeLine)
	case domain.GroupByRarity:
		key = strings.ToLower(strings.TrimSpace(item.Rarity))
	case domain.GroupByColor:
		key = colorKey(item.Colors)
	default:
		key = strings.ToUpper(strings.TrimSpace(item.Identity.SetCode))
	}
	if key == "" {
		return domain.UnknownGroup
	}
	return key
}

// primaryType picks the first known card type on the front face of a type line
func primaryType(typeLine string) string {
	front, _, _ := strings.Cut(typeLine, "//")
	types, _, _ := strings.Cut(front, "—")
	fields := strings.Fields(types)
	for _, t := range primaryTypes {
		if slices.Contains(fields, t) {
			return t
		}
	}
	return ""
}

func colorKey(colors []string) string {
	switch len(colors) {
	case 0:
		return GroupColorless
	case 1:
		return strings.ToUpper(colors[0])
	default:
		return GroupMulticolor
	}
}
