package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
)

type EventRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.Event
}

func NewEventRepository(seed []tournament.Event) *EventRepository {
	r := &EventRepository{items: make(map[string]tournament.Event, len(seed))}
	for _, e := range seed {
		r.items[e.ID] = e
	}
	return r
}

func (r *EventRepository) Add(e tournament.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.ID] = e
}

func (r *EventRepository) GetEvent(_ context.Context, organizationID, eventID string) (tournament.Event, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[eventID]
	if !ok || e.OrganizationID != organizationID {
		return tournament.Event{}, false, nil
	}
	return e, true, nil
}

func (r *EventRepository) ListEvents(_ context.Context, filter tournament.ListEventsFilter) ([]tournament.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []tournament.Event
	for _, id := range ids {
		e := r.items[id]
		if filter.OrganizationID != "" && e.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.TemplateType != "" && e.TemplateType != filter.TemplateType {
			continue
		}
		if filter.CompletedOnly && e.Status != tournament.EventCompleted {
			continue
		}
		if filter.Cursor != "" && e.ID <= filter.Cursor {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *EventRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *EventRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]tournament.Event)
}

type ParticipantRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.Participant
}

func NewParticipantRepository(seed []tournament.Participant) *ParticipantRepository {
	r := &ParticipantRepository{items: make(map[string]tournament.Participant, len(seed))}
	for _, p := range seed {
		r.items[p.ID] = p
	}
	return r
}

func (r *ParticipantRepository) Add(p tournament.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
}

func (r *ParticipantRepository) ListParticipantsByEvent(_ context.Context, organizationID, eventID string) ([]tournament.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tournament.Participant
	for _, id := range r.sortedIDs() {
		p := r.items[id]
		if p.OrganizationID == organizationID && p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ParticipantRepository) ListParticipantsByPlayer(_ context.Context, organizationID, playerProfileID string) ([]tournament.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tournament.Participant
	for _, id := range r.sortedIDs() {
		p := r.items[id]
		if p.OrganizationID == organizationID && p.PlayerProfileID == playerProfileID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ParticipantRepository) ExistsParticipant(_ context.Context, organizationID, eventID, categoryID, playerProfileID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.items {
		if p.OrganizationID == organizationID && p.EventID == eventID && p.CategoryID == categoryID && p.PlayerProfileID == playerProfileID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ParticipantRepository) UpdateParticipantPlayer(_ context.Context, participantID, playerProfileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[participantID]
	if !ok {
		return fmt.Errorf("participant %s not found", participantID)
	}
	p.PlayerProfileID = playerProfileID
	r.items[participantID] = p
	return nil
}

func (r *ParticipantRepository) DeleteParticipant(_ context.Context, participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, participantID)
	return nil
}

func (r *ParticipantRepository) LatestParticipationTimeByPlayer(_ context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, p := range r.items {
		if p.OrganizationID != organizationID || p.PlayerProfileID != playerProfileID {
			continue
		}
		if latest == nil || p.CreatedAt.After(*latest) {
			t := p.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (r *ParticipantRepository) sortedIDs() []string {
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *ParticipantRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *ParticipantRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]tournament.Participant)
}

type RankingRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.RankingEntry
	seq   int
}

func NewRankingRepository() *RankingRepository {
	return &RankingRepository{items: make(map[string]tournament.RankingEntry)}
}

func (r *RankingRepository) ListRankingEntries(_ context.Context, organizationID, eventID string) ([]tournament.RankingEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tournament.RankingEntry
	for _, e := range r.items {
		if e.OrganizationID == organizationID && e.EventID == eventID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].PlayerProfileID < out[j].PlayerProfileID
	})
	return out, nil
}

func (r *RankingRepository) ReplaceRankingEntries(_ context.Context, organizationID, eventID string, entries []tournament.RankingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.items {
		if e.OrganizationID == organizationID && e.EventID == eventID {
			delete(r.items, id)
		}
	}
	for _, e := range entries {
		if e.ID == "" {
			r.seq++
			e.ID = fmt.Sprintf("ranking-%d", r.seq)
		}
		r.items[e.ID] = e
	}
	return nil
}

func (r *RankingRepository) RepointRankingEntries(_ context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.items {
		if e.OrganizationID == organizationID && e.PlayerProfileID == fromPlayerID {
			e.PlayerProfileID = toPlayerID
			r.items[id] = e
		}
	}
	return nil
}

func (r *RankingRepository) LatestRankingTimeByPlayer(_ context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, e := range r.items {
		if e.OrganizationID != organizationID || e.PlayerProfileID != playerProfileID {
			continue
		}
		if latest == nil || e.CreatedAt.After(*latest) {
			t := e.CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (r *RankingRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *RankingRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]tournament.RankingEntry)
}

type HistoryRepository struct {
	mu    sync.RWMutex
	items map[string]tournament.HistoryRow
	seq   int
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{items: make(map[string]tournament.HistoryRow)}
}

func (r *HistoryRepository) ReplaceHistoryRows(_ context.Context, organizationID, eventID string, rows []tournament.HistoryRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, row := range r.items {
		if row.OrganizationID == organizationID && row.EventID == eventID {
			delete(r.items, id)
		}
	}
	for _, row := range rows {
		if row.ID == "" {
			r.seq++
			row.ID = fmt.Sprintf("history-%d", r.seq)
		}
		r.items[row.ID] = row
	}
	return nil
}

func (r *HistoryRepository) ListHistoryByPlayer(_ context.Context, organizationID, playerProfileID string) ([]tournament.HistoryRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tournament.HistoryRow
	for _, row := range r.items {
		if row.OrganizationID == organizationID && row.PlayerProfileID == playerProfileID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (r *HistoryRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *HistoryRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]tournament.HistoryRow)
}
