package postgres

import (
	"context"
	"fmt"

	"github.com/matchpoint-labs/padelcore/internal/domain/match"
	qb "github.com/matchpoint-labs/padelcore/internal/platform/querybuilder"
)

type MatchRepository struct {
	db queryer
}

func NewMatchRepository(db queryer) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) ListCompletedByEvent(ctx context.Context, organizationID, eventID string) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("match_slots").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
			qb.Eq("status", string(match.StatusDone)),
			qb.Expr("side_a_players <> '[]'::jsonb"),
			qb.Expr("side_b_players <> '[]'::jsonb"),
		).
		OrderBy("COALESCE(actual_end_at, planned_end_at, updated_at)", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list completed matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list completed matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) CountCompletedByEvent(ctx context.Context, organizationID, eventID string) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("match_slots").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
			qb.Eq("status", string(match.StatusDone)),
			qb.Expr("side_a_players <> '[]'::jsonb"),
			qb.Expr("side_b_players <> '[]'::jsonb"),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count completed matches query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count completed matches: %w", err)
	}
	return count, nil
}

func (r *MatchRepository) ListByDisputant(ctx context.Context, organizationID, userID string) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("match_slots").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("status", string(match.StatusDone)),
			qb.Expr("score->>'disputedBy' = ?", userID),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by disputant query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list matches by disputant: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) RepointParticipants(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	for _, column := range []string{"side_a_players", "side_b_players"} {
		query, args, err := qb.Update("match_slots").
			SetExpr(column,
				fmt.Sprintf("(SELECT COALESCE(jsonb_agg(CASE WHEN p = to_jsonb(?::text) THEN to_jsonb(?::text) ELSE p END), '[]'::jsonb) FROM jsonb_array_elements(%s) AS p)", column),
				fromPlayerID, toPlayerID).
			Where(
				qb.Eq("organization_id", organizationID),
				qb.Expr(fmt.Sprintf("%s @> to_jsonb(?::text)", column), fromPlayerID),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build repoint match %s query: %w", column, err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("repoint match %s: %w", column, err)
		}
	}
	return nil
}
