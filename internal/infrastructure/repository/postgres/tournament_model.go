package postgres

import (
	"database/sql"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
)

type eventTableModel struct {
	ID             string         `db:"id"`
	OrganizationID string         `db:"organization_id"`
	Title          string         `db:"title"`
	Slug           sql.NullString `db:"slug"`
	TemplateType   string         `db:"template_type"`
	Status         string         `db:"status"`
	Format         sql.NullString `db:"format"`
	Tier           sql.NullString `db:"tier"`
	ClubID         sql.NullString `db:"club_id"`
	City           sql.NullString `db:"city"`
	StartsAt       *time.Time     `db:"starts_at"`
	EndsAt         *time.Time     `db:"ends_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	DeletedAt      *time.Time     `db:"deleted_at"`
}

func (m eventTableModel) toDomain() tournament.Event {
	return tournament.Event{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Title:          m.Title,
		Slug:           nullStringValue(m.Slug),
		TemplateType:   m.TemplateType,
		Status:         tournament.EventStatus(m.Status),
		Format:         nullStringValue(m.Format),
		Tier:           nullStringValue(m.Tier),
		ClubID:         nullStringValue(m.ClubID),
		City:           nullStringValue(m.City),
		StartsAt:       m.StartsAt,
		EndsAt:         m.EndsAt,
	}
}

type participantTableModel struct {
	ID              string    `db:"id"`
	OrganizationID  string    `db:"organization_id"`
	EventID         string    `db:"event_id"`
	CategoryID      string    `db:"category_id"`
	PlayerProfileID string    `db:"player_profile_id"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
}

func (m participantTableModel) toDomain() tournament.Participant {
	return tournament.Participant{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		EventID:         m.EventID,
		CategoryID:      m.CategoryID,
		PlayerProfileID: m.PlayerProfileID,
		Status:          tournament.ParticipantStatus(m.Status),
		CreatedAt:       m.CreatedAt,
	}
}

type rankingEntryTableModel struct {
	ID              string         `db:"id"`
	OrganizationID  string         `db:"organization_id"`
	EventID         string         `db:"event_id"`
	PlayerProfileID string         `db:"player_profile_id"`
	Points          int            `db:"points"`
	Position        int            `db:"position"`
	Level           float64        `db:"level"`
	Season          sql.NullString `db:"season"`
	Year            int            `db:"year"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (m rankingEntryTableModel) toDomain() tournament.RankingEntry {
	return tournament.RankingEntry{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		EventID:         m.EventID,
		PlayerProfileID: m.PlayerProfileID,
		Points:          m.Points,
		Position:        m.Position,
		Level:           m.Level,
		Season:          nullStringValue(m.Season),
		Year:            m.Year,
		CreatedAt:       m.CreatedAt,
	}
}

type historyRowTableModel struct {
	ID                     string         `db:"id"`
	OrganizationID         string         `db:"organization_id"`
	EventID                string         `db:"event_id"`
	CategoryID             sql.NullString `db:"category_id"`
	PlayerProfileID        string         `db:"player_profile_id"`
	PartnerPlayerProfileID sql.NullString `db:"partner_player_profile_id"`
	FinalPosition          int            `db:"final_position"`
	WonTitle               bool           `db:"won_title"`
	BracketSnapshot        string         `db:"bracket_snapshot"`
	ComputedAt             time.Time      `db:"computed_at"`
}

func (m historyRowTableModel) toDomain() tournament.HistoryRow {
	return tournament.HistoryRow{
		ID:                     m.ID,
		OrganizationID:         m.OrganizationID,
		EventID:                m.EventID,
		CategoryID:             nullStringValue(m.CategoryID),
		PlayerProfileID:        m.PlayerProfileID,
		PartnerPlayerProfileID: nullStringValue(m.PartnerPlayerProfileID),
		FinalPosition:          m.FinalPosition,
		WonTitle:               m.WonTitle,
		BracketSnapshot:        decodeJSONMap(m.BracketSnapshot),
		ComputedAt:             m.ComputedAt,
	}
}
