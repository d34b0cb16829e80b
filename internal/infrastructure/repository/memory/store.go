// Package memory provides map-backed repositories for tests and local
// runs without a database.
package memory

import (
	"context"
	"sync"

	"github.com/matchpoint-labs/padelcore/internal/usecase"
)

type snapshotter interface {
	snapshot() any
	restore(any)
}

// Store aggregates one in-memory instance of every repository together
// with a TxRunner over them. InTx serializes callers and restores all
// repositories from a snapshot when fn fails, so rollback semantics
// match the database-backed runner.
type Store struct {
	Profiles       *PlayerProfileRepository
	References     *ReferenceRepository
	RatingProfiles *RatingProfileRepository
	RatingEvents   *RatingEventRepository
	Sanctions      *SanctionRepository
	Matches        *MatchRepository
	Events         *EventRepository
	Participants   *ParticipantRepository
	Rankings       *RankingRepository
	History        *HistoryRepository

	txMu sync.Mutex
}

func NewStore() *Store {
	return &Store{
		Profiles:       NewPlayerProfileRepository(),
		References:     NewReferenceRepository(),
		RatingProfiles: NewRatingProfileRepository(),
		RatingEvents:   NewRatingEventRepository(),
		Sanctions:      NewSanctionRepository(),
		Matches:        NewMatchRepository(nil),
		Events:         NewEventRepository(nil),
		Participants:   NewParticipantRepository(nil),
		Rankings:       NewRankingRepository(),
		History:        NewHistoryRepository(),
	}
}

func (s *Store) Deps() usecase.TxDeps {
	return usecase.TxDeps{
		Profiles:       s.Profiles,
		References:     s.References,
		RatingProfiles: s.RatingProfiles,
		RatingEvents:   s.RatingEvents,
		Sanctions:      s.Sanctions,
		Matches:        s.Matches,
		Events:         s.Events,
		Participants:   s.Participants,
		Rankings:       s.Rankings,
		History:        s.History,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, deps usecase.TxDeps) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	repos := []snapshotter{
		s.Profiles, s.References, s.RatingProfiles, s.RatingEvents, s.Sanctions,
		s.Matches, s.Events, s.Participants, s.Rankings, s.History,
	}
	states := make([]any, len(repos))
	for i, r := range repos {
		states[i] = r.snapshot()
	}

	if err := fn(ctx, s.Deps()); err != nil {
		for i, r := range repos {
			r.restore(states[i])
		}
		return err
	}
	return nil
}
