package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
)

type PlayerProfileRepository struct {
	mu    sync.RWMutex
	items map[string]identity.PlayerProfile
}

func NewPlayerProfileRepository() *PlayerProfileRepository {
	return &PlayerProfileRepository{items: make(map[string]identity.PlayerProfile)}
}

func (r *PlayerProfileRepository) GetByID(_ context.Context, organizationID, profileID string) (identity.PlayerProfile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[profileID]
	if !ok || p.OrganizationID != organizationID {
		return identity.PlayerProfile{}, false, nil
	}
	return p, true, nil
}

func (r *PlayerProfileRepository) GetByUser(_ context.Context, organizationID, userID string) (identity.PlayerProfile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.sortedIDs() {
		p := r.items[id]
		if p.OrganizationID == organizationID && p.UserID == userID && userID != "" {
			return p, true, nil
		}
	}
	return identity.PlayerProfile{}, false, nil
}

func (r *PlayerProfileRepository) GetProvisionalByEmail(_ context.Context, organizationID, email, excludeUserID string) (identity.PlayerProfile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return identity.PlayerProfile{}, false, nil
	}
	for _, id := range r.sortedIDs() {
		p := r.items[id]
		if p.OrganizationID != organizationID {
			continue
		}
		if strings.ToLower(p.Email) != email {
			continue
		}
		if p.UserID == excludeUserID && excludeUserID != "" {
			continue
		}
		return p, true, nil
	}
	return identity.PlayerProfile{}, false, nil
}

func (r *PlayerProfileRepository) Create(_ context.Context, profile identity.PlayerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[profile.ID] = profile
	return nil
}

func (r *PlayerProfileRepository) Update(_ context.Context, profile identity.PlayerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[profile.ID] = profile
	return nil
}

func (r *PlayerProfileRepository) Delete(_ context.Context, organizationID, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.items[profileID]; ok && p.OrganizationID == organizationID {
		delete(r.items, profileID)
	}
	return nil
}

func (r *PlayerProfileRepository) sortedIDs() []string {
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *PlayerProfileRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.items)
}

func (r *PlayerProfileRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = state.(map[string]identity.PlayerProfile)
}

// refRow is one supporting reference hanging off a player profile.
type refRow struct {
	ID              string
	OrganizationID  string
	PlayerProfileID string
}

// ReferenceRepository backs pairing slots, calendar holds and CRM links
// with plain reference rows, enough to observe merge repointing.
type ReferenceRepository struct {
	mu            sync.RWMutex
	pairingSlots  map[string]refRow
	calendarHolds map[string]refRow
	crmLinks      map[string]refRow
}

func NewReferenceRepository() *ReferenceRepository {
	return &ReferenceRepository{
		pairingSlots:  make(map[string]refRow),
		calendarHolds: make(map[string]refRow),
		crmLinks:      make(map[string]refRow),
	}
}

func (r *ReferenceRepository) SeedPairingSlot(id, organizationID, playerProfileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairingSlots[id] = refRow{ID: id, OrganizationID: organizationID, PlayerProfileID: playerProfileID}
}

func (r *ReferenceRepository) SeedCalendarHold(id, organizationID, playerProfileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendarHolds[id] = refRow{ID: id, OrganizationID: organizationID, PlayerProfileID: playerProfileID}
}

func (r *ReferenceRepository) SeedCRMLink(id, organizationID, playerProfileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.crmLinks[id] = refRow{ID: id, OrganizationID: organizationID, PlayerProfileID: playerProfileID}
}

func (r *ReferenceRepository) PairingSlotsByPlayer(organizationID, playerProfileID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return countByPlayer(r.pairingSlots, organizationID, playerProfileID)
}

func (r *ReferenceRepository) CalendarHoldsByPlayer(organizationID, playerProfileID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return countByPlayer(r.calendarHolds, organizationID, playerProfileID)
}

func (r *ReferenceRepository) CRMLinksByPlayer(organizationID, playerProfileID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return countByPlayer(r.crmLinks, organizationID, playerProfileID)
}

func (r *ReferenceRepository) RepointPairingSlots(_ context.Context, organizationID, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	repoint(r.pairingSlots, organizationID, fromID, toID)
	return nil
}

func (r *ReferenceRepository) RepointCalendarHolds(_ context.Context, organizationID, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	repoint(r.calendarHolds, organizationID, fromID, toID)
	return nil
}

func (r *ReferenceRepository) RepointCRMLinks(_ context.Context, organizationID, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	repoint(r.crmLinks, organizationID, fromID, toID)
	return nil
}

func countByPlayer(rows map[string]refRow, organizationID, playerProfileID string) int {
	count := 0
	for _, row := range rows {
		if row.OrganizationID == organizationID && row.PlayerProfileID == playerProfileID {
			count++
		}
	}
	return count
}

func repoint(rows map[string]refRow, organizationID, fromID, toID string) {
	for id, row := range rows {
		if row.OrganizationID == organizationID && row.PlayerProfileID == fromID {
			row.PlayerProfileID = toID
			rows[id] = row
		}
	}
}

func (r *ReferenceRepository) snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return [3]map[string]refRow{copyMap(r.pairingSlots), copyMap(r.calendarHolds), copyMap(r.crmLinks)}
}

func (r *ReferenceRepository) restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := state.([3]map[string]refRow)
	r.pairingSlots, r.calendarHolds, r.crmLinks = s[0], s[1], s[2]
}

// AccountDirectory is an in-memory identity.AccountDirectory.
type AccountDirectory struct {
	mu    sync.RWMutex
	items map[string]identity.Account
}

func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{items: make(map[string]identity.Account)}
}

func (d *AccountDirectory) Seed(account identity.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[account.UserID] = account
}

func (d *AccountDirectory) GetAccount(_ context.Context, userID string) (identity.Account, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, ok := d.items[userID]
	return account, ok, nil
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
