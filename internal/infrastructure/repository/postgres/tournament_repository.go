package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/tournament"
	qb "github.com/matchpoint-labs/padelcore/internal/platform/querybuilder"
)

type EventRepository struct {
	db queryer
}

func NewEventRepository(db queryer) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetEvent(ctx context.Context, organizationID, eventID string) (tournament.Event, bool, error) {
	query, args, err := qb.Select("*").From("events").
		Where(
			qb.Eq("id", eventID),
			qb.Eq("organization_id", organizationID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return tournament.Event{}, false, fmt.Errorf("build get event query: %w", err)
	}

	var row eventTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tournament.Event{}, false, nil
		}
		return tournament.Event{}, false, fmt.Errorf("get event: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, filter tournament.ListEventsFilter) ([]tournament.Event, error) {
	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if filter.OrganizationID != "" {
		conditions = append(conditions, qb.Eq("organization_id", filter.OrganizationID))
	}
	if filter.TemplateType != "" {
		conditions = append(conditions, qb.Eq("template_type", filter.TemplateType))
	}
	if filter.CompletedOnly {
		conditions = append(conditions, qb.Eq("status", string(tournament.EventCompleted)))
	}
	if filter.Cursor != "" {
		conditions = append(conditions, qb.Expr("id > ?", filter.Cursor))
	}

	builder := qb.Select("*").From("events").Where(conditions...).OrderBy("id")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list events query: %w", err)
	}

	var rows []eventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]tournament.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type ParticipantRepository struct {
	db queryer
}

func NewParticipantRepository(db queryer) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) ListParticipantsByEvent(ctx context.Context, organizationID, eventID string) ([]tournament.Participant, error) {
	return r.list(ctx, qb.Eq("organization_id", organizationID), qb.Eq("event_id", eventID))
}

func (r *ParticipantRepository) ListParticipantsByPlayer(ctx context.Context, organizationID, playerProfileID string) ([]tournament.Participant, error) {
	return r.list(ctx, qb.Eq("organization_id", organizationID), qb.Eq("player_profile_id", playerProfileID))
}

func (r *ParticipantRepository) list(ctx context.Context, conditions ...qb.Condition) ([]tournament.Participant, error) {
	query, args, err := qb.Select("*").From("tournament_participants").
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list participants query: %w", err)
	}

	var rows []participantTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	out := make([]tournament.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ParticipantRepository) ExistsParticipant(ctx context.Context, organizationID, eventID, categoryID, playerProfileID string) (bool, error) {
	query, args, err := qb.Select("COUNT(1)").From("tournament_participants").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
			qb.Eq("category_id", categoryID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build exists participant query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("exists participant: %w", err)
	}
	return count > 0, nil
}

func (r *ParticipantRepository) UpdateParticipantPlayer(ctx context.Context, participantID, playerProfileID string) error {
	query, args, err := qb.Update("tournament_participants").
		Set("player_profile_id", playerProfileID).
		Where(qb.Eq("id", participantID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update participant player query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update participant player: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) DeleteParticipant(ctx context.Context, participantID string) error {
	query, args, err := qb.DeleteFrom("tournament_participants").
		Where(qb.Eq("id", participantID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete participant query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) LatestParticipationTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	query, args, err := qb.Select("MAX(created_at)").From("tournament_participants").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build latest participation time query: %w", err)
	}

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return nil, fmt.Errorf("latest participation time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

type RankingRepository struct {
	db queryer
}

func NewRankingRepository(db queryer) *RankingRepository {
	return &RankingRepository{db: db}
}

func (r *RankingRepository) ListRankingEntries(ctx context.Context, organizationID, eventID string) ([]tournament.RankingEntry, error) {
	query, args, err := qb.Select("*").From("ranking_entries").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		OrderBy("position", "player_profile_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list ranking entries query: %w", err)
	}

	var rows []rankingEntryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ranking entries: %w", err)
	}

	out := make([]tournament.RankingEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RankingRepository) ReplaceRankingEntries(ctx context.Context, organizationID, eventID string, entries []tournament.RankingEntry) error {
	deleteQuery, deleteArgs, err := qb.DeleteFrom("ranking_entries").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete ranking entries query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("delete ranking entries: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	builder := qb.InsertInto("ranking_entries").
		Columns("organization_id", "event_id", "player_profile_id", "points", "position",
			"level", "season", "year", "created_at")
	for _, e := range entries {
		builder = builder.Values(e.OrganizationID, e.EventID, e.PlayerProfileID, e.Points, e.Position,
			e.Level, nullString(e.Season), e.Year, e.CreatedAt)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert ranking entries query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ranking entries: %w", err)
	}
	return nil
}

func (r *RankingRepository) RepointRankingEntries(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	query, args, err := qb.Update("ranking_entries").
		Set("player_profile_id", toPlayerID).
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", fromPlayerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build repoint ranking entries query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repoint ranking entries: %w", err)
	}
	return nil
}

func (r *RankingRepository) LatestRankingTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	query, args, err := qb.Select("MAX(created_at)").From("ranking_entries").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build latest ranking time query: %w", err)
	}

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return nil, fmt.Errorf("latest ranking time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

type HistoryRepository struct {
	db queryer
}

func NewHistoryRepository(db queryer) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ReplaceHistoryRows(ctx context.Context, organizationID, eventID string, rows []tournament.HistoryRow) error {
	deleteQuery, deleteArgs, err := qb.DeleteFrom("player_history_rows").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete history rows query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("delete history rows: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	builder := qb.InsertInto("player_history_rows").
		Columns("organization_id", "event_id", "category_id", "player_profile_id",
			"partner_player_profile_id", "final_position", "won_title", "bracket_snapshot", "computed_at")
	for _, row := range rows {
		builder = builder.Values(row.OrganizationID, row.EventID, nullString(row.CategoryID), row.PlayerProfileID,
			nullString(row.PartnerPlayerProfileID), row.FinalPosition, row.WonTitle,
			encodeJSONMap(row.BracketSnapshot), row.ComputedAt)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build insert history rows query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history rows: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListHistoryByPlayer(ctx context.Context, organizationID, playerProfileID string) ([]tournament.HistoryRow, error) {
	query, args, err := qb.Select("*").From("player_history_rows").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		OrderBy("event_id", "category_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list history rows query: %w", err)
	}

	var rows []historyRowTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list history rows: %w", err)
	}

	out := make([]tournament.HistoryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
