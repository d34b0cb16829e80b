package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

// TxManager implements usecase.TxRunner over a single database. Each
// InTx call opens one transaction and binds every repository to it, so
// a use case composes cross-aggregate writes into one atomic unit.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context, deps usecase.TxDeps) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, Deps(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Deps builds the repository bundle on an open handle. Passing *sqlx.DB
// yields auto-commit repositories for read paths.
func Deps(q queryer) usecase.TxDeps {
	return usecase.TxDeps{
		Profiles:       NewPlayerProfileRepository(q),
		References:     NewReferenceRepository(q),
		RatingProfiles: NewRatingProfileRepository(q),
		RatingEvents:   NewRatingEventRepository(q),
		Sanctions:      NewSanctionRepository(q),
		Matches:        NewMatchRepository(q),
		Events:         NewEventRepository(q),
		Participants:   NewParticipantRepository(q),
		Rankings:       NewRankingRepository(q),
		History:        NewHistoryRepository(q),
	}
}
