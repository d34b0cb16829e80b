package postgres

import (
	"database/sql"
	"time"

	"github.com/matchpoint-labs/padelcore/internal/domain/identity"
)

type playerProfileTableModel struct {
	ID             string         `db:"id"`
	OrganizationID string         `db:"organization_id"`
	UserID         sql.NullString `db:"user_id"`
	FullName       sql.NullString `db:"full_name"`
	DisplayName    sql.NullString `db:"display_name"`
	Email          sql.NullString `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Gender         sql.NullString `db:"gender"`
	SkillLevel     sql.NullString `db:"skill_level"`
	PreferredSide  sql.NullString `db:"preferred_side"`
	HomeClubID     sql.NullString `db:"home_club_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	DeletedAt      *time.Time     `db:"deleted_at"`
}

func (m playerProfileTableModel) toDomain() identity.PlayerProfile {
	return identity.PlayerProfile{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         nullStringValue(m.UserID),
		FullName:       nullStringValue(m.FullName),
		DisplayName:    nullStringValue(m.DisplayName),
		Email:          nullStringValue(m.Email),
		Phone:          nullStringValue(m.Phone),
		Gender:         nullStringValue(m.Gender),
		SkillLevel:     nullStringValue(m.SkillLevel),
		PreferredSide:  nullStringValue(m.PreferredSide),
		HomeClubID:     nullStringValue(m.HomeClubID),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
