package tournament

import "time"

const TemplatePadel = "PADEL"

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCompleted EventStatus = "COMPLETED"
)

// Formats whose final standings come from the knockout bracket rather
// than group standings.
var KnockoutFormats = map[string]struct{}{
	"KNOCKOUT":        {},
	"KNOCKOUT_AB":     {},
	"DOUBLE_ELIM":     {},
	"GROUPS_KNOCKOUT": {},
}

// Event is a tournament occurrence. Tier, ClubID and City feed the
// rating ledger's context tags.
type Event struct {
	ID             string
	OrganizationID string
	Title          string
	Slug           string
	TemplateType   string
	Status         EventStatus
	Format         string
	Tier           string
	ClubID         string
	City           string
	StartsAt       *time.Time
	EndsAt         *time.Time
}

type ParticipantStatus string

const (
	ParticipantActive    ParticipantStatus = "ACTIVE"
	ParticipantInactive  ParticipantStatus = "INACTIVE"
	ParticipantWithdrawn ParticipantStatus = "WITHDRAWN"
)

// Participant links a player profile to one event category. At most one
// row may exist per (event, category, player).
type Participant struct {
	ID              string
	OrganizationID  string
	EventID         string
	CategoryID      string
	PlayerProfileID string
	Status          ParticipantStatus
	CreatedAt       time.Time
}

// RankingEntry is one row of an event leaderboard. Positions are dense:
// players on equal points share a position.
type RankingEntry struct {
	ID              string
	OrganizationID  string
	EventID         string
	PlayerProfileID string
	Points          int
	Position        int
	Level           float64
	Season          string
	Year            int
	CreatedAt       time.Time
}

// HistoryRow is the per-player projection of one finished tournament:
// final position, usual partner, and a snapshot for profile pages.
type HistoryRow struct {
	ID                     string
	OrganizationID         string
	EventID                string
	CategoryID             string
	PlayerProfileID        string
	PartnerPlayerProfileID string
	FinalPosition          int
	WonTitle               bool
	BracketSnapshot        map[string]any
	ComputedAt             time.Time
}
