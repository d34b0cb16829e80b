package tournament

import (
	"context"
	"time"
)

// ListEventsFilter selects events for batch drivers. Cursor is an
// exclusive lower bound on the event id; ids are compared as stored, so
// callers must use ids with a sortable encoding.
type ListEventsFilter struct {
	OrganizationID string
	TemplateType   string
	CategoryID     string
	Cursor         string
	Limit          int
	CompletedOnly  bool
}

// EventRepository reads tournament events.
type EventRepository interface {
	GetEvent(ctx context.Context, organizationID, eventID string) (Event, bool, error)
	ListEvents(ctx context.Context, filter ListEventsFilter) ([]Event, error)
}

// ParticipantRepository stores event participation rows.
type ParticipantRepository interface {
	ListParticipantsByEvent(ctx context.Context, organizationID, eventID string) ([]Participant, error)
	ListParticipantsByPlayer(ctx context.Context, organizationID, playerProfileID string) ([]Participant, error)
	ExistsParticipant(ctx context.Context, organizationID, eventID, categoryID, playerProfileID string) (bool, error)
	UpdateParticipantPlayer(ctx context.Context, participantID, playerProfileID string) error
	DeleteParticipant(ctx context.Context, participantID string) error
	LatestParticipationTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error)
}

// RankingRepository stores event leaderboards. ReplaceRankingEntries
// swaps the whole leaderboard atomically within the caller's
// transaction.
type RankingRepository interface {
	ListRankingEntries(ctx context.Context, organizationID, eventID string) ([]RankingEntry, error)
	ReplaceRankingEntries(ctx context.Context, organizationID, eventID string, entries []RankingEntry) error
	RepointRankingEntries(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error
	LatestRankingTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error)
}

// HistoryRepository stores the per-player tournament history projection.
type HistoryRepository interface {
	ReplaceHistoryRows(ctx context.Context, organizationID, eventID string, rows []HistoryRow) error
	ListHistoryByPlayer(ctx context.Context, organizationID, playerProfileID string) ([]HistoryRow, error)
}
