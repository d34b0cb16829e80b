package identity

import (
	"fmt"
	"time"
)

// PlayerProfile is the per-organization record for one person. A profile
// without a linked user is provisional: it was created from an invite,
// an admin import, or a walk-in signup before the person authenticated.
type PlayerProfile struct {
	ID             string
	OrganizationID string
	UserID         string
	FullName       string
	DisplayName    string
	Email          string
	Phone          string
	Gender         string
	SkillLevel     string
	PreferredSide  string
	HomeClubID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Provisional reports whether the profile has no linked account yet.
func (p PlayerProfile) Provisional() bool {
	return p.UserID == ""
}

func (p PlayerProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player profile id is required")
	}
	if p.OrganizationID == "" {
		return fmt.Errorf("player profile organization id is required")
	}
	if p.FullName == "" && p.DisplayName == "" && p.Email == "" {
		return fmt.Errorf("player profile needs at least a name or an email")
	}
	return nil
}

// Account carries the identity fields the external account store knows
// about a user. Consumed read-only during profile creation and merge.
type Account struct {
	UserID        string
	Email         string
	FullName      string
	Phone         string
	Gender        string
	SkillLevel    string
	PreferredSide string
	HomeClubID    string
}

// Principal is the authenticated caller as reported by the account
// store's token introspection.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// ClaimWindowExpiredError signals that a provisional profile's most recent
// competitive activity predates the retroactive claim window, so the claim
// needs an out-of-band decision instead of a retry.
type ClaimWindowExpiredError struct {
	PlayerProfileID string
	LastActivityAt  time.Time
	WindowMonths    int
}

func (e *ClaimWindowExpiredError) Error() string {
	return fmt.Sprintf("claim window expired for player profile %s: last activity %s is older than %d months",
		e.PlayerProfileID, e.LastActivityAt.Format(time.RFC3339), e.WindowMonths)
}
