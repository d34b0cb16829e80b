package identity

import "context"

// Repository describes player-profile persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, organizationID, profileID string) (PlayerProfile, bool, error)
	GetByUser(ctx context.Context, organizationID, userID string) (PlayerProfile, bool, error)
	// GetProvisionalByEmail finds a profile in the organization matched by
	// contact email that is not already linked to the given user.
	GetProvisionalByEmail(ctx context.Context, organizationID, email, excludeUserID string) (PlayerProfile, bool, error)
	Create(ctx context.Context, profile PlayerProfile) error
	Update(ctx context.Context, profile PlayerProfile) error
	Delete(ctx context.Context, organizationID, profileID string) error
}

// ReferenceRepository repoints supporting rows that hang off a player
// profile (pairing slots, calendar holds, CRM cross-links) when a merge
// moves history from a losing profile to the canonical one.
type ReferenceRepository interface {
	RepointPairingSlots(ctx context.Context, organizationID, fromProfileID, toProfileID string) error
	RepointCalendarHolds(ctx context.Context, organizationID, fromProfileID, toProfileID string) error
	RepointCRMLinks(ctx context.Context, organizationID, fromProfileID, toProfileID string) error
}

// AccountDirectory reads identity enrichment fields from the external
// account store.
type AccountDirectory interface {
	GetAccount(ctx context.Context, userID string) (Account, bool, error)
}
