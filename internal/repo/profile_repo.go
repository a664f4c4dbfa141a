package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// GetProfile fetches a profile by id, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfilesByIDs loads every profile in ids with a single query. Unknown
// ids are simply absent from the result. An empty ids slice returns an
// empty result without touching the database.
func GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.UserProfile, error) {
	out := []domain.UserProfile{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// UpsertProfile creates the profile or updates its self-service fields
// (full name and branch). Role and block state are never touched here.
func UpsertProfile(ctx context.Context, db *gorm.DB, id, fullName, branch string) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	p := &domain.UserProfile{
		ID:        id,
		FullName:  fullName,
		Role:      domain.RoleUser,
		Branch:    branch,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "branch", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, id)
}

// ProfilePatch holds admin-only changes; nil fields are left alone.
type ProfilePatch struct {
	Role      *domain.Role
	IsBlocked *bool
}

// UpdateProfileAdmin applies patch to the profile. It returns ErrNotFound
// when no profile has that id.
func UpdateProfileAdmin(ctx context.Context, db *gorm.DB, id string, patch ProfilePatch) (*domain.UserProfile, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Role != nil {
		updates["role"] = string(*patch.Role)
	}
	if patch.IsBlocked != nil {
		updates["is_blocked"] = *patch.IsBlocked
	}
	res := db.WithContext(ctx).Model(&domain.UserProfile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetProfile(ctx, db, id)
}
