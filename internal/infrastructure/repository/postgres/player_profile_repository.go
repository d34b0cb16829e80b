package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
	qb "github.com/matchpoint-labs/padelcore/internal/platform/querybuilder"
)

type PlayerProfileRepository struct {
	db queryer
}

func NewPlayerProfileRepository(db queryer) *PlayerProfileRepository {
	return &PlayerProfileRepository{db: db}
}

func (r *PlayerProfileRepository) GetByID(ctx context.Context, organizationID, profileID string) (identity.PlayerProfile, bool, error) {
	query, args, err := qb.Select("*").From("player_profiles").
		Where(
			qb.Eq("id", profileID),
			qb.Eq("organization_id", organizationID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return identity.PlayerProfile{}, false, fmt.Errorf("build get player profile query: %w", err)
	}

	var row playerProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return identity.PlayerProfile{}, false, nil
		}
		return identity.PlayerProfile{}, false, fmt.Errorf("get player profile by id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerProfileRepository) GetByUser(ctx context.Context, organizationID, userID string) (identity.PlayerProfile, bool, error) {
	if userID == "" {
		return identity.PlayerProfile{}, false, nil
	}

	query, args, err := qb.Select("*").From("player_profiles").
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return identity.PlayerProfile{}, false, fmt.Errorf("build get player profile by user query: %w", err)
	}

	var row playerProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return identity.PlayerProfile{}, false, nil
		}
		return identity.PlayerProfile{}, false, fmt.Errorf("get player profile by user: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerProfileRepository) GetProvisionalByEmail(ctx context.Context, organizationID, email, excludeUserID string) (identity.PlayerProfile, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return identity.PlayerProfile{}, false, nil
	}

	conditions := []qb.Condition{
		qb.Eq("organization_id", organizationID),
		qb.Expr("LOWER(email) = ?", email),
		qb.IsNull("deleted_at"),
	}
	if excludeUserID != "" {
		conditions = append(conditions, qb.Expr("(user_id IS NULL OR user_id <> ?)", excludeUserID))
	}

	query, args, err := qb.Select("*").From("player_profiles").
		Where(conditions...).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return identity.PlayerProfile{}, false, fmt.Errorf("build get provisional profile query: %w", err)
	}

	var row playerProfileTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return identity.PlayerProfile{}, false, nil
		}
		return identity.PlayerProfile{}, false, fmt.Errorf("get provisional profile by email: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerProfileRepository) Create(ctx context.Context, profile identity.PlayerProfile) error {
	query, args, err := qb.InsertInto("player_profiles").
		Columns("id", "organization_id", "user_id", "full_name", "display_name", "email",
			"phone", "gender", "skill_level", "preferred_side", "home_club_id").
		Values(profile.ID, profile.OrganizationID, nullString(profile.UserID),
			nullString(profile.FullName), nullString(profile.DisplayName), nullString(profile.Email),
			nullString(profile.Phone), nullString(profile.Gender), nullString(profile.SkillLevel),
			nullString(profile.PreferredSide), nullString(profile.HomeClubID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert player profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert player profile: %w", err)
	}
	return nil
}

func (r *PlayerProfileRepository) Update(ctx context.Context, profile identity.PlayerProfile) error {
	query, args, err := qb.Update("player_profiles").
		Set("user_id", nullString(profile.UserID)).
		Set("full_name", nullString(profile.FullName)).
		Set("display_name", nullString(profile.DisplayName)).
		Set("email", nullString(profile.Email)).
		Set("phone", nullString(profile.Phone)).
		Set("gender", nullString(profile.Gender)).
		Set("skill_level", nullString(profile.SkillLevel)).
		Set("preferred_side", nullString(profile.PreferredSide)).
		Set("home_club_id", nullString(profile.HomeClubID)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", profile.ID),
			qb.Eq("organization_id", profile.OrganizationID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update player profile: %w", err)
	}
	return nil
}

func (r *PlayerProfileRepository) Delete(ctx context.Context, organizationID, profileID string) error {
	query, args, err := qb.Update("player_profiles").
		SetExpr("deleted_at", "NOW()").
		Where(
			qb.Eq("id", profileID),
			qb.Eq("organization_id", organizationID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete player profile query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete player profile: %w", err)
	}
	return nil
}
