package postgres

import (
	"database/sql"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
)

type ratingProfileTableModel struct {
	ID                  string     `db:"id"`
	OrganizationID      string     `db:"organization_id"`
	PlayerProfileID     string     `db:"player_profile_id"`
	Rating              float64    `db:"rating"`
	RD                  float64    `db:"rd"`
	Sigma               float64    `db:"sigma"`
	Tau                 float64    `db:"tau"`
	MatchesPlayed       int        `db:"matches_played"`
	LevelVisual         float64    `db:"level_visual"`
	LeaderboardEligible bool       `db:"leaderboard_eligible"`
	BlockedNewMatches   bool       `db:"blocked_new_matches"`
	SuspensionEndsAt    *time.Time `db:"suspension_ends_at"`
	LastMatchAt         *time.Time `db:"last_match_at"`
	LastActivityAt      *time.Time `db:"last_activity_at"`
	LastRebuildAt       *time.Time `db:"last_rebuild_at"`
	Metadata            string     `db:"metadata"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (m ratingProfileTableModel) toDomain() rating.Profile {
	return rating.Profile{
		ID:                  m.ID,
		OrganizationID:      m.OrganizationID,
		PlayerProfileID:     m.PlayerProfileID,
		Rating:              m.Rating,
		RD:                  m.RD,
		Sigma:               m.Sigma,
		Tau:                 m.Tau,
		MatchesPlayed:       m.MatchesPlayed,
		LevelVisual:         m.LevelVisual,
		LeaderboardEligible: m.LeaderboardEligible,
		BlockedNewMatches:   m.BlockedNewMatches,
		SuspensionEndsAt:    m.SuspensionEndsAt,
		LastMatchAt:         m.LastMatchAt,
		LastActivityAt:      m.LastActivityAt,
		LastRebuildAt:       m.LastRebuildAt,
		Metadata:            decodeJSONMap(m.Metadata),
	}
}

type ratingEventTableModel struct {
	ID                string         `db:"id"`
	OrganizationID    string         `db:"organization_id"`
	EventID           string         `db:"event_id"`
	MatchID           string         `db:"match_id"`
	PlayerProfileID   string         `db:"player_profile_id"`
	Sequence          int            `db:"sequence"`
	OpponentAvgRating float64        `db:"opponent_avg_rating"`
	PreRating         float64        `db:"pre_rating"`
	PreRD             float64        `db:"pre_rd"`
	PreSigma          float64        `db:"pre_sigma"`
	PostRating        float64        `db:"post_rating"`
	PostRD            float64        `db:"post_rd"`
	PostSigma         float64        `db:"post_sigma"`
	ExpectedScore     float64        `db:"expected_score"`
	ActualScore       float64        `db:"actual_score"`
	GamesFor          int            `db:"games_for"`
	GamesAgainst      int            `db:"games_against"`
	TierMultiplier    float64        `db:"tier_multiplier"`
	CarryMultiplier   float64        `db:"carry_multiplier"`
	Tier              sql.NullString `db:"tier"`
	ClubID            sql.NullString `db:"club_id"`
	City              sql.NullString `db:"city"`
	OccurredAt        time.Time      `db:"occurred_at"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (m ratingEventTableModel) toDomain() rating.Event {
	return rating.Event{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		EventID:           m.EventID,
		MatchID:           m.MatchID,
		PlayerProfileID:   m.PlayerProfileID,
		Sequence:          m.Sequence,
		OpponentAvgRating: m.OpponentAvgRating,
		PreRating:         m.PreRating,
		PreRD:             m.PreRD,
		PreSigma:          m.PreSigma,
		PostRating:        m.PostRating,
		PostRD:            m.PostRD,
		PostSigma:         m.PostSigma,
		ExpectedScore:     m.ExpectedScore,
		ActualScore:       m.ActualScore,
		GamesFor:          m.GamesFor,
		GamesAgainst:      m.GamesAgainst,
		TierMultiplier:    m.TierMultiplier,
		CarryMultiplier:   m.CarryMultiplier,
		Tier:              nullStringValue(m.Tier),
		ClubID:            nullStringValue(m.ClubID),
		City:              nullStringValue(m.City),
		OccurredAt:        m.OccurredAt,
	}
}

type sanctionTableModel struct {
	ID               string         `db:"id"`
	OrganizationID   string         `db:"organization_id"`
	PlayerProfileID  string         `db:"player_profile_id"`
	Type             string         `db:"type"`
	Status           string         `db:"status"`
	ReasonCode       sql.NullString `db:"reason_code"`
	Reason           sql.NullString `db:"reason"`
	StartsAt         time.Time      `db:"starts_at"`
	EndsAt           *time.Time     `db:"ends_at"`
	CreatedByUserID  sql.NullString `db:"created_by_user_id"`
	ResolvedByUserID sql.NullString `db:"resolved_by_user_id"`
	ResolvedAt       *time.Time     `db:"resolved_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (m sanctionTableModel) toDomain() rating.Sanction {
	return rating.Sanction{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		PlayerProfileID:  m.PlayerProfileID,
		Type:             rating.SanctionType(m.Type),
		Status:           rating.SanctionStatus(m.Status),
		ReasonCode:       nullStringValue(m.ReasonCode),
		Reason:           nullStringValue(m.Reason),
		StartsAt:         m.StartsAt,
		EndsAt:           m.EndsAt,
		CreatedByUserID:  nullStringValue(m.CreatedByUserID),
		ResolvedByUserID: nullStringValue(m.ResolvedByUserID),
		ResolvedAt:       m.ResolvedAt,
	}
}
