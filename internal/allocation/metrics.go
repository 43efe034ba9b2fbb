package allocation

import (
	"errors"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/metrics"
)

// RecordMetrics counts a committed relocation
func RecordMetrics(reason string, result *RelocateResult) {
	if result == nil {
		return
	}
	if result.Moved > 0 {
		metrics.UnitsRelocated.WithLabelValues(reason).Add(float64(result.Moved))
	}
	if result.Materialized > 0 {
		metrics.StacksMaterialized.WithLabelValues(reason).Add(float64(result.Materialized))
	}
}

// RecordShortfall counts relocations that failed for lack of source stacks
func RecordShortfall(reason string, err error) {
	if errors.Is(err, domain.ErrInsufficientSource) {
		metrics.RelocationShortfalls.WithLabelValues(reason).Inc()
	}
}
