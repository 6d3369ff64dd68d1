package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medbook-server/internal/models"
	"medbook-server/internal/scheduling"
)

// UserRepo resolves users by role. It backs the scheduling service's
// UserDirectory and the admin statistics endpoint.
type UserRepo struct {
	db *gorm.DB
}

var _ scheduling.UserDirectory = (*UserRepo)(nil)

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByIDAndRole returns the user with the given id holding the given role,
// or (nil, nil) when no such user exists.
func (r *UserRepo) FindByIDAndRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND role = ?", id, role).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountByRole groups user totals by role.
func (r *UserRepo) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	var rows []struct {
		Role  models.Role
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, count(*) as total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}
