package postgres

import (
	"database/sql"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
)

type matchTableModel struct {
	ID             string         `db:"id"`
	OrganizationID string         `db:"organization_id"`
	EventID        string         `db:"event_id"`
	CategoryID     sql.NullString `db:"category_id"`
	Status         string         `db:"status"`
	RoundType      sql.NullString `db:"round_type"`
	RoundLabel     sql.NullString `db:"round_label"`
	GroupLabel     sql.NullString `db:"group_label"`
	WinnerSide     sql.NullString `db:"winner_side"`
	SideAPlayers   string         `db:"side_a_players"`
	SideBPlayers   string         `db:"side_b_players"`
	ScoreSets      string         `db:"score_sets"`
	Score          string         `db:"score"`
	PlannedEndAt   *time.Time     `db:"planned_end_at"`
	ActualEndAt    *time.Time     `db:"actual_end_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EventID:        m.EventID,
		CategoryID:     nullStringValue(m.CategoryID),
		Status:         match.Status(m.Status),
		RoundType:      nullStringValue(m.RoundType),
		RoundLabel:     nullStringValue(m.RoundLabel),
		GroupLabel:     nullStringValue(m.GroupLabel),
		WinnerSide:     nullStringValue(m.WinnerSide),
		SideAPlayers:   decodeJSONStrings(m.SideAPlayers),
		SideBPlayers:   decodeJSONStrings(m.SideBPlayers),
		ScoreSets:      decodeJSONSets(m.ScoreSets),
		Score:          decodeJSONMap(m.Score),
		PlannedEndAt:   m.PlannedEndAt,
		ActualEndAt:    m.ActualEndAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func decodeJSONSets(raw string) []match.SetScore {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []match.SetScore
	if err := sonic.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
