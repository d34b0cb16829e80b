package match

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusLive      Status = "LIVE"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
)

// RoundKnockout marks bracket matches; everything else counts as group
// or league play for standings purposes.
const RoundKnockout = "KNOCKOUT"

// Match is one scheduled slot between two pairings. Score carries the
// semi-structured result payload, including embedded dispute state, as
// stored; use ResolveStats and ParseDispute to interpret it.
type Match struct {
	ID             string
	OrganizationID string
	EventID        string
	CategoryID     string
	Status         Status
	RoundType      string
	RoundLabel     string
	GroupLabel     string
	WinnerSide     string
	SideAPlayers   []string
	SideBPlayers   []string
	ScoreSets      []SetScore
	Score          map[string]any
	PlannedEndAt   *time.Time
	ActualEndAt    *time.Time
	UpdatedAt      time.Time
}

// CompletionTime is the instant the match counts as finished for rating
// purposes: actual end when recorded, otherwise planned end, otherwise
// the last update.
func (m Match) CompletionTime() time.Time {
	if m.ActualEndAt != nil {
		return *m.ActualEndAt
	}
	if m.PlannedEndAt != nil {
		return *m.PlannedEndAt
	}
	return m.UpdatedAt
}

// Playable reports whether both sides have at least one player, which
// the rating rebuild requires.
func (m Match) Playable() bool {
	return len(m.SideAPlayers) > 0 && len(m.SideBPlayers) > 0
}
