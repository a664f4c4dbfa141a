package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// ListReference returns the reference items of one kind ordered by title.
func ListReference(ctx context.Context, db *gorm.DB, kind domain.ReferenceKind) ([]domain.ReferenceItem, error) {
	out := []domain.ReferenceItem{}
	err := db.WithContext(ctx).Where("kind = ?", kind).Order("title ASC, id ASC").Find(&out).Error
	return out, err
}

// UpsertReference creates or replaces a reference item by id.
func UpsertReference(ctx context.Context, db *gorm.DB, item *domain.ReferenceItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "title", "body", "updated_at"}),
	}).Create(item).Error
}
