package allocation

import (
	"context"
	"fmt"

	"github.com/osse101/CardVault_Go/internal/logger"
	"github.com/osse101/CardVault_Go/internal/metrics"
	"github.com/osse101/CardVault_Go/internal/repository"
)

// Service runs stand-alone relocations in their own transaction
type Service interface {
	// Move relocates units atomically: any error, including
	// ErrInsufficientSource, rolls back every step.
	Move(ctx context.Context, req RelocateRequest) (*RelocateResult, error)
}

type service struct {
	repo   repository.StackRepository
	engine *Engine
}

// NewService creates a new allocation service
func NewService(repo repository.StackRepository, engine *Engine) Service {
	return &service{
		repo:   repo,
		engine: engine,
	}
}

func (s *service) Move(ctx context.Context, req RelocateRequest) (*RelocateResult, error) {
	tx, err := s.repo.BeginStackTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgBeginTx, err)
	}
	defer repository.SafeRollback(ctx, tx)

	result, err := s.engine.Relocate(ctx, tx, req)
	if err != nil {
		RecordShortfall(metrics.ReasonMove, err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgCommitTx, err)
	}

	RecordMetrics(metrics.ReasonMove, result)
	logger.FromContext(ctx).Info(LogMsgRelocated,
		"catalog_id", req.Match.CatalogID,
		"from", req.From.String(),
		"to", req.To.String(),
		"moved", result.Moved,
		"materialized", result.Materialized)
	return result, nil
}
