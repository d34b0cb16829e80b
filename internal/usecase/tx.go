package usecase

import (
	"context"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
)

// TxDeps bundles every repository bound to one database transaction.
// Core services are transaction participants: they receive these
// already-bound repositories and never begin or commit anything
// themselves, so a caller can compose a merge, a pairing confirmation,
// and its audit rows into a single atomic unit.
type TxDeps struct {
	Profiles       identity.Repository
	References     identity.ReferenceRepository
	RatingProfiles rating.ProfileRepository
	RatingEvents   rating.EventRepository
	Sanctions      rating.SanctionRepository
	Matches        match.Repository
	Events         tournament.EventRepository
	Participants   tournament.ParticipantRepository
	Rankings       tournament.RankingRepository
	History        tournament.HistoryRepository
}

// TxRunner opens one transaction, hands transaction-bound repositories
// to fn, and commits when fn returns nil. Any error rolls back the
// whole unit.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, deps TxDeps) error) error
}
