package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

// MySQLProfileRepo reads shipping details from user_profiles(user_id, address, phone).
type MySQLProfileRepo struct{ db *sql.DB }

func NewMySQLProfileRepo(db *sql.DB) *MySQLProfileRepo { return &MySQLProfileRepo{db: db} }

// GetProfile returns nil, nil for a user who never filled in a profile.
// NULL columns read as empty strings.
func (r *MySQLProfileRepo) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, address, phone
FROM user_profiles WHERE user_id=?`, userID)

	var (
		u              domain.User
		address, phone sql.NullString
	)
	if err := row.Scan(&u.ID, &address, &phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Address, u.Phone = address.String, phone.String
	return &u, nil
}

var _ usecase.ProfileRepo = (*MySQLProfileRepo)(nil)
