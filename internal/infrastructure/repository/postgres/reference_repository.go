package postgres

import (
	"context"
	"fmt"

	qb "github.com/matchpoint-labs/padelcore/internal/platform/querybuilder"
)

// ReferenceRepository moves supporting rows between player profiles when
// an identity merge retires the losing profile.
type ReferenceRepository struct {
	db queryer
}

func NewReferenceRepository(db queryer) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) RepointPairingSlots(ctx context.Context, organizationID, fromProfileID, toProfileID string) error {
	return r.repoint(ctx, "pairing_slots", organizationID, fromProfileID, toProfileID)
}

func (r *ReferenceRepository) RepointCalendarHolds(ctx context.Context, organizationID, fromProfileID, toProfileID string) error {
	return r.repoint(ctx, "calendar_holds", organizationID, fromProfileID, toProfileID)
}

func (r *ReferenceRepository) RepointCRMLinks(ctx context.Context, organizationID, fromProfileID, toProfileID string) error {
	return r.repoint(ctx, "crm_links", organizationID, fromProfileID, toProfileID)
}

func (r *ReferenceRepository) repoint(ctx context.Context, table, organizationID, fromProfileID, toProfileID string) error {
	query, args, err := qb.Update(table).
		Set("player_profile_id", toProfileID).
		Where(
			qb.Eq("organization_id", organizationID),
			qb.Eq("player_profile_id", fromProfileID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build repoint %s query: %w", table, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("repoint %s: %w", table, err)
	}
	return nil
}
