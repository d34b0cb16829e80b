package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
)

type MatchRepository struct {
	mu    sync.RWMutex
	items []match.Match
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	return &MatchRepository{items: append([]match.Match(nil), seed...)}
}

func (r *MatchRepository) Add(m match.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, m)
}

func (r *MatchRepository) ListCompletedByEvent(_ context.Context, organizationID, eventID string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []match.Match
	for _, m := range r.items {
		if m.OrganizationID != organizationID || m.EventID != eventID {
			continue
		}
		if m.Status != match.StatusDone || !m.Playable() {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CompletionTime(), out[j].CompletionTime()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MatchRepository) CountCompletedByEvent(ctx context.Context, organizationID, eventID string) (int, error) {
	matches, err := r.ListCompletedByEvent(ctx, organizationID, eventID)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (r *MatchRepository) ListByDisputant(_ context.Context, organizationID, userID string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []match.Match
	for _, m := range r.items {
		if m.OrganizationID != organizationID || m.Status != match.StatusDone {
			continue
		}
		if by, ok := m.Score["disputedBy"].(string); !ok || by != userID {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MatchRepository) RepointParticipants(_ context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.items {
		if m.OrganizationID != organizationID {
			continue
		}
		m.SideAPlayers = replaceAll(m.SideAPlayers, fromPlayerID, toPlayerID)
		m.SideBPlayers = replaceAll(m.SideBPlayers, fromPlayerID, toPlayerID)
		r.items[i] = m
	}
	return nil
}

func replaceAll(players []string, from, to string) []string {
	out := make([]string, len(players))
	for i, p := range players {
		if p == from {
			p = to
		}
		out[i] = p
	}
	return out
}

func (r *MatchRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]match.Match(nil), r.items...)
}

func (r *MatchRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.([]match.Match)
}
