package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// ListRooms returns every room ordered by id. Listing order for members is
// applied by the access package, not here.
func ListRooms(ctx context.Context, db *gorm.DB) ([]domain.ChatRoom, error) {
	out := []domain.ChatRoom{}
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// GetRoom fetches a room by id, or ErrNotFound.
func GetRoom(ctx context.Context, db *gorm.DB, id string) (*domain.ChatRoom, error) {
	var r domain.ChatRoom
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// EnsureRooms inserts the rooms that do not exist yet and leaves existing
// ones untouched, so administrator edits survive restarts. It returns the
// number of rooms inserted.
func EnsureRooms(ctx context.Context, db *gorm.DB, rooms []domain.ChatRoom) (int64, error) {
	if len(rooms) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rooms)
	return res.RowsAffected, res.Error
}
