package rating

import (
	"fmt"
	"strings"
	"time"
)

// Profile is the derived per-player rating state for one organization.
// It is rebuilt from the immutable event ledger and mutated only by the
// rating engine and the sanction machinery.
type Profile struct {
	ID                  string
	OrganizationID      string
	PlayerProfileID     string
	Rating              float64
	RD                  float64
	Sigma               float64
	Tau                 float64
	MatchesPlayed       int
	LevelVisual         float64
	LeaderboardEligible bool
	BlockedNewMatches   bool
	SuspensionEndsAt    *time.Time
	LastMatchAt         *time.Time
	LastActivityAt      *time.Time
	LastRebuildAt       *time.Time
	Metadata            map[string]any
}

func (p Profile) Validate() error {
	if p.OrganizationID == "" {
		return fmt.Errorf("rating profile organization id is required")
	}
	if p.PlayerProfileID == "" {
		return fmt.Errorf("rating profile player id is required")
	}
	if p.RD <= 0 {
		return fmt.Errorf("rating deviation must be positive")
	}
	if p.Sigma <= 0 {
		return fmt.Errorf("rating volatility must be positive")
	}
	return nil
}

// Suspended reports whether a suspension window is still open at the
// given instant.
func (p Profile) Suspended(now time.Time) bool {
	return p.SuspensionEndsAt != nil && p.SuspensionEndsAt.After(now)
}

// Event is one immutable ledger row: the effect of one match on one
// player. Tier, ClubID and City are context tags filled at write time
// when known, or patched later by the context backfill. Sequence is
// the row's position in the replay that wrote it and breaks ordering
// ties between rows sharing an OccurredAt.
type Event struct {
	ID                string
	OrganizationID    string
	EventID           string
	MatchID           string
	PlayerProfileID   string
	Sequence          int
	OpponentAvgRating float64
	PreRating         float64
	PreRD             float64
	PreSigma          float64
	PostRating        float64
	PostRD            float64
	PostSigma         float64
	ExpectedScore     float64
	ActualScore       float64
	GamesFor          int
	GamesAgainst      int
	TierMultiplier    float64
	CarryMultiplier   float64
	Tier              string
	ClubID            string
	City              string
	OccurredAt        time.Time
}

// MissingContext reports whether any of the segmentation tags is unset.
func (e Event) MissingContext() bool {
	return e.Tier == "" || e.ClubID == "" || e.City == ""
}

type SanctionType string

const (
	SanctionSuspension      SanctionType = "SUSPENSION"
	SanctionBlockNewMatches SanctionType = "BLOCK_NEW_MATCHES"
	SanctionResetPartial    SanctionType = "RESET_PARTIAL"
)

var AllSanctionTypes = map[SanctionType]struct{}{
	SanctionSuspension:      {},
	SanctionBlockNewMatches: {},
	SanctionResetPartial:    {},
}

type SanctionStatus string

const (
	SanctionActive   SanctionStatus = "ACTIVE"
	SanctionResolved SanctionStatus = "RESOLVED"
)

// AutoReasonPrefix marks reason codes owned by the anti-fraud monitor.
// Sanctions carrying it are only ever created or resolved automatically.
const AutoReasonPrefix = "AUTO_"

// Sanction is a time-bounded restriction on a player. A sanction with a
// nil EndsAt is indefinite; one with an elapsed EndsAt is inert without
// ever transitioning to RESOLVED.
type Sanction struct {
	ID               string
	OrganizationID   string
	PlayerProfileID  string
	Type             SanctionType
	Status           SanctionStatus
	ReasonCode       string
	Reason           string
	StartsAt         time.Time
	EndsAt           *time.Time
	CreatedByUserID  string
	ResolvedByUserID string
	ResolvedAt       *time.Time
}

func (s Sanction) Automatic() bool {
	return strings.HasPrefix(s.ReasonCode, AutoReasonPrefix)
}

// InEffect reports whether the sanction restricts the player at the
// given instant.
func (s Sanction) InEffect(now time.Time) bool {
	if s.Status != SanctionActive {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.After(now)
}

func (s Sanction) Validate() error {
	if s.OrganizationID == "" {
		return fmt.Errorf("sanction organization id is required")
	}
	if s.PlayerProfileID == "" {
		return fmt.Errorf("sanction player id is required")
	}
	if _, ok := AllSanctionTypes[s.Type]; !ok {
		return fmt.Errorf("invalid sanction type: %s", s.Type)
	}
	return nil
}

// NewProfile seeds a rating profile with the engine defaults.
func NewProfile(id, organizationID, playerProfileID string) Profile {
	return Profile{
		ID:                  id,
		OrganizationID:      organizationID,
		PlayerProfileID:     playerProfileID,
		Rating:              DefaultRating,
		RD:                  DefaultRD,
		Sigma:               DefaultSigma,
		Tau:                 DefaultTau,
		LeaderboardEligible: true,
		Metadata:            map[string]any{},
	}
}
