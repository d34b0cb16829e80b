package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
)

type RatingProfileRepository struct {
	mu    sync.RWMutex
	items map[string]rating.Profile
	seq   int
}

func NewRatingProfileRepository() *RatingProfileRepository {
	return &RatingProfileRepository{items: make(map[string]rating.Profile)}
}

func profileKey(organizationID, playerProfileID string) string {
	return organizationID + "/" + playerProfileID
}

func (r *RatingProfileRepository) GetProfileByPlayer(_ context.Context, organizationID, playerProfileID string) (rating.Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[profileKey(organizationID, playerProfileID)]
	if !ok {
		return rating.Profile{}, false, nil
	}
	return p, true, nil
}

func (r *RatingProfileRepository) EnsureProfile(_ context.Context, organizationID, playerProfileID string) (rating.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := profileKey(organizationID, playerProfileID)
	if p, ok := r.items[key]; ok {
		return p, nil
	}
	r.seq++
	p := rating.NewProfile(fmt.Sprintf("rating-profile-%d", r.seq), organizationID, playerProfileID)
	r.items[key] = p
	return p, nil
}

func (r *RatingProfileRepository) UpdateProfile(_ context.Context, profile rating.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[profileKey(profile.OrganizationID, profile.PlayerProfileID)] = profile
	return nil
}

func (r *RatingProfileRepository) RepointProfile(_ context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fromKey := profileKey(organizationID, fromPlayerID)
	p, ok := r.items[fromKey]
	if !ok {
		return nil
	}
	delete(r.items, fromKey)
	p.PlayerProfileID = toPlayerID
	r.items[profileKey(organizationID, toPlayerID)] = p
	return nil
}

func (r *RatingProfileRepository) DeleteProfile(_ context.Context, organizationID, playerProfileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, profileKey(organizationID, playerProfileID))
	return nil
}

func (r *RatingProfileRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *RatingProfileRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]rating.Profile)
}

type RatingEventRepository struct {
	mu    sync.RWMutex
	items []rating.Event
}

func NewRatingEventRepository() *RatingEventRepository {
	return &RatingEventRepository{}
}

func (r *RatingEventRepository) CreateEvent(_ context.Context, event rating.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, event)
	return nil
}

func (r *RatingEventRepository) ListEventsByEvent(_ context.Context, organizationID, eventID string) ([]rating.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []rating.Event
	for _, e := range r.items {
		if e.OrganizationID == organizationID && e.EventID == eventID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RatingEventRepository) CountEventsByEvent(_ context.Context, organizationID, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.items {
		if e.OrganizationID == organizationID && e.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (r *RatingEventRepository) DeleteEventsByEvent(_ context.Context, organizationID, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.items[:0:0]
	for _, e := range r.items {
		if e.OrganizationID == organizationID && e.EventID == eventID {
			continue
		}
		kept = append(kept, e)
	}
	r.items = kept
	return nil
}

func (r *RatingEventRepository) PatchEventContext(_ context.Context, eventRowID, tier, clubID, city string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.items {
		if e.ID != eventRowID {
			continue
		}
		if tier != "" {
			e.Tier = tier
		}
		if clubID != "" {
			e.ClubID = clubID
		}
		if city != "" {
			e.City = city
		}
		r.items[i] = e
		return nil
	}
	return nil
}

func (r *RatingEventRepository) RepointEvents(_ context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.items {
		if e.OrganizationID == organizationID && e.PlayerProfileID == fromPlayerID {
			e.PlayerProfileID = toPlayerID
			r.items[i] = e
		}
	}
	return nil
}

func (r *RatingEventRepository) LatestEventTimeByPlayer(_ context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, e := range r.items {
		if e.OrganizationID != organizationID || e.PlayerProfileID != playerProfileID {
			continue
		}
		if latest == nil || e.OccurredAt.After(*latest) {
			t := e.OccurredAt
			latest = &t
		}
	}
	return latest, nil
}

func (r *RatingEventRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]rating.Event(nil), r.items...)
}

func (r *RatingEventRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.([]rating.Event)
}

type SanctionRepository struct {
	mu    sync.RWMutex
	items map[string]rating.Sanction
}

func NewSanctionRepository() *SanctionRepository {
	return &SanctionRepository{items: make(map[string]rating.Sanction)}
}

func (r *SanctionRepository) CreateSanction(_ context.Context, sanction rating.Sanction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sanction.ID] = sanction
	return nil
}

func (r *SanctionRepository) UpdateSanction(_ context.Context, sanction rating.Sanction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[sanction.ID] = sanction
	return nil
}

func (r *SanctionRepository) ListActiveSanctions(_ context.Context, organizationID, playerProfileID string) ([]rating.Sanction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []rating.Sanction
	for _, id := range ids {
		s := r.items[id]
		if s.OrganizationID == organizationID && s.PlayerProfileID == playerProfileID && s.Status == rating.SanctionActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SanctionRepository) RepointSanctions(_ context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.items {
		if s.OrganizationID == organizationID && s.PlayerProfileID == fromPlayerID {
			s.PlayerProfileID = toPlayerID
			r.items[id] = s
		}
	}
	return nil
}

func (r *SanctionRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *SanctionRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]rating.Sanction)
}
