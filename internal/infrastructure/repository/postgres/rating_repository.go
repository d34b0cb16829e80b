package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/rating"
	qb "github.com/matchpoint-labs/padelcore/internal/platform/querybuilder"
)

type RatingProfileRepository struct {
	db queryer
}

func NewRatingProfileRepository(db queryer) *RatingProfileRepository {
	return &RatingProfileRepository{db: db}
}

func (r *RatingProfileRepository) GetProfileByPlayer(ctx context.Context, organizationID, playerProfileID string) (rating.Profile, bool, error) {
	query, args, err := qb.Select("*").From("rating_profiles").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return rating.Profile{}, false, fmt.Errorf("build get rating profile query: %w", err)
	}

	var row ratingProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return rating.Profile{}, false, nil
		}
		return rating.Profile{}, false, fmt.Errorf("get rating profile: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *RatingProfileRepository) EnsureProfile(ctx context.Context, organizationID, playerProfileID string) (rating.Profile, error) {
	query, args, err := qb.InsertInto("rating_profiles").
		Columns("organization_id", "player_profile_id", "rating", "rd", "sigma", "tau",
			"level_visual", "leaderboard_eligible", "metadata").
		Values(organizationID, playerProfileID, rating.DefaultRating, rating.DefaultRD,
			rating.DefaultSigma, rating.DefaultTau, 0.0, true, "{}").
		Suffix("ON CONFLICT (organization_id, player_profile_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return rating.Profile{}, fmt.Errorf("build ensure rating profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return rating.Profile{}, fmt.Errorf("ensure rating profile: %w", err)
	}

	profile, found, err := r.GetProfileByPlayer(ctx, organizationID, playerProfileID)
	if err != nil {
		return rating.Profile{}, err
	}
	if !found {
		return rating.Profile{}, fmt.Errorf("rating profile missing after upsert: player=%s", playerProfileID)
	}
	return profile, nil
}

func (r *RatingProfileRepository) UpdateProfile(ctx context.Context, profile rating.Profile) error {
	query, args, err := qb.Update("rating_profiles").
		Set("rating", profile.Rating).
		Set("rd", profile.RD).
		Set("sigma", profile.Sigma).
		Set("tau", profile.Tau).
		Set("matches_played", profile.MatchesPlayed).
		Set("level_visual", profile.LevelVisual).
		Set("leaderboard_eligible", profile.LeaderboardEligible).
		Set("blocked_new_matches", profile.BlockedNewMatches).
		Set("suspension_ends_at", profile.SuspensionEndsAt).
		Set("last_match_at", profile.LastMatchAt).
		Set("last_activity_at", profile.LastActivityAt).
		Set("last_rebuild_at", profile.LastRebuildAt).
		Set("metadata", encodeJSONMap(profile.Metadata)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("organization_id", profile.OrganizationID),
			qb.Eq("player_profile_id", profile.PlayerProfileID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update rating profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update rating profile: %w", err)
	}
	return nil
}

func (r *RatingProfileRepository) RepointProfile(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	query, args, err := qb.Update("rating_profiles").
		Set("player_profile_id", toPlayerID).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", fromPlayerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build repoint rating profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repoint rating profile: %w", err)
	}
	return nil
}

func (r *RatingProfileRepository) DeleteProfile(ctx context.Context, organizationID, playerProfileID string) error {
	query, args, err := qb.DeleteFrom("rating_profiles").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete rating profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete rating profile: %w", err)
	}
	return nil
}

type RatingEventRepository struct {
	db queryer
}

func NewRatingEventRepository(db queryer) *RatingEventRepository {
	return &RatingEventRepository{db: db}
}

func (r *RatingEventRepository) CreateEvent(ctx context.Context, event rating.Event) error {
	query, args, err := qb.InsertInto("rating_events").
		Columns("id", "organization_id", "event_id", "match_id", "player_profile_id",
			"sequence", "opponent_avg_rating", "pre_rating", "pre_rd", "pre_sigma",
			"post_rating", "post_rd", "post_sigma", "expected_score", "actual_score",
			"games_for", "games_against", "tier_multiplier", "carry_multiplier",
			"tier", "club_id", "city", "occurred_at").
		Values(event.ID, event.OrganizationID, event.EventID, event.MatchID, event.PlayerProfileID,
			event.Sequence, event.OpponentAvgRating, event.PreRating, event.PreRD, event.PreSigma,
			event.PostRating, event.PostRD, event.PostSigma, event.ExpectedScore, event.ActualScore,
			event.GamesFor, event.GamesAgainst, event.TierMultiplier, event.CarryMultiplier,
			nullString(event.Tier), nullString(event.ClubID), nullString(event.City), event.OccurredAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert rating event query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}
	return nil
}

func (r *RatingEventRepository) ListEventsByEvent(ctx context.Context, organizationID, eventID string) ([]rating.Event, error) {
	query, args, err := qb.Select("*").From("rating_events").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		OrderBy("occurred_at", "sequence", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rating events query: %w", err)
	}

	var rows []ratingEventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rating events: %w", err)
	}

	out := make([]rating.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RatingEventRepository) CountEventsByEvent(ctx context.Context, organizationID, eventID string) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("rating_events").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count rating events query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count rating events: %w", err)
	}
	return count, nil
}

func (r *RatingEventRepository) DeleteEventsByEvent(ctx context.Context, organizationID, eventID string) error {
	query, args, err := qb.DeleteFrom("rating_events").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("event_id", eventID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete rating events query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete rating events: %w", err)
	}
	return nil
}

func (r *RatingEventRepository) PatchEventContext(ctx context.Context, eventRowID, tier, clubID, city string) error {
	builder := qb.Update("rating_events")
	touched := false
	if tier != "" {
		builder = builder.Set("tier", tier)
		touched = true
	}
	if clubID != "" {
		builder = builder.Set("club_id", clubID)
		touched = true
	}
	if city != "" {
		builder = builder.Set("city", city)
		touched = true
	}
	if !touched {
		return nil
	}

	query, args, err := builder.Where(qb.Eq("id", eventRowID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build patch rating event context query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch rating event context: %w", err)
	}
	return nil
}

func (r *RatingEventRepository) RepointEvents(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	query, args, err := qb.Update("rating_events").
		Set("player_profile_id", toPlayerID).
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", fromPlayerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build repoint rating events query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repoint rating events: %w", err)
	}
	return nil
}

func (r *RatingEventRepository) LatestEventTimeByPlayer(ctx context.Context, organizationID, playerProfileID string) (*time.Time, error) {
	query, args, err := qb.Select("MAX(occurred_at)").From("rating_events").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build latest rating event time query: %w", err)
	}

	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		return nil, fmt.Errorf("latest rating event time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

type SanctionRepository struct {
	db queryer
}

func NewSanctionRepository(db queryer) *SanctionRepository {
	return &SanctionRepository{db: db}
}

func (r *SanctionRepository) CreateSanction(ctx context.Context, sanction rating.Sanction) error {
	query, args, err := qb.InsertInto("rating_sanctions").
		Columns("id", "organization_id", "player_profile_id", "type", "status",
			"reason_code", "reason", "starts_at", "ends_at", "created_by_user_id").
		Values(sanction.ID, sanction.OrganizationID, sanction.PlayerProfileID,
			string(sanction.Type), string(sanction.Status),
			nullString(sanction.ReasonCode), nullString(sanction.Reason),
			sanction.StartsAt, sanction.EndsAt, nullString(sanction.CreatedByUserID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert sanction query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sanction: %w", err)
	}
	return nil
}

func (r *SanctionRepository) UpdateSanction(ctx context.Context, sanction rating.Sanction) error {
	query, args, err := qb.Update("rating_sanctions").
		Set("status", string(sanction.Status)).
		Set("ends_at", sanction.EndsAt).
		Set("resolved_by_user_id", nullString(sanction.ResolvedByUserID)).
		Set("resolved_at", sanction.ResolvedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", sanction.ID),
			qb.Eq("organization_id", sanction.OrganizationID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update sanction query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update sanction: %w", err)
	}
	return nil
}

func (r *SanctionRepository) ListActiveSanctions(ctx context.Context, organizationID, playerProfileID string) ([]rating.Sanction, error) {
	query, args, err := qb.Select("*").From("rating_sanctions").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", playerProfileID),
			qb.Eq("status", string(rating.SanctionActive)),
		).
		OrderBy("starts_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list active sanctions query: %w", err)
	}

	var rows []sanctionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active sanctions: %w", err)
	}

	out := make([]rating.Sanction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SanctionRepository) RepointSanctions(ctx context.Context, organizationID, fromPlayerID, toPlayerID string) error {
	query, args, err := qb.Update("rating_sanctions").
		Set("player_profile_id", toPlayerID).
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", fromPlayerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build repoint sanctions query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repoint sanctions: %w", err)
	}
	return nil
}
