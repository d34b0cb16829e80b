package rating

import (
	"context"
	"time"
)

// ProfileRepository describes rating-profile persistence needs from use
// cases. EnsureProfile upserts the default state so first-match players
// get a row without a separate signup step. RepointProfile rewrites the
// owning player id in place; UpdateProfile keys on the stored id and
// cannot change it.
type ProfileRepository interface {
	GetProfileByPlayer(ctx context.Context, organizationID, playerProfileID string) (Profile, bool, error)
	EnsureProfile(ctx context.Context, organizationID, playerProfileID string) (Profile, error)
	UpdateProfile(ctx context.Context, profile Profile) error
	RepointProfile(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error
	DeleteProfile(ctx context.Context, organizationID, playerProfileID string) error
}

// EventRepository stores the append-only rating ledger.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	ListEventsByEvent(ctx context.Context, organizationID, eventID string) ([]Event, error)
	CountEventsByEvent(ctx context.Context, organizationID, eventID string) (int, error)
	DeleteEventsByEvent(ctx context.Context, organizationID, eventID string) error
	// PatchEventContext fills only the given tag fields; empty arguments
	// leave the stored value untouched.
	PatchEventContext(ctx context.Context, eventRowID, tier, clubID, city string) error
	RepointEvents(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error
	LatestEventTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error)
}

// SanctionRepository stores time-bounded player restrictions.
type SanctionRepository interface {
	CreateSanction(ctx context.Context, sanction Sanction) error
	UpdateSanction(ctx context.Context, sanction Sanction) error
	ListActiveSanctions(ctx context.Context, organizationID, playerProfileID string) ([]Sanction, error)
	RepointSanctions(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error
}
