package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// ConversationStats summarizes the conversation between a and b for ETag generation: total
// rows, rows still unread, and the newest created_at (nil when empty).
// The unread count makes the tag change when the receiver reads.
func ConversationStats(ctx context.Context, db *gorm.DB, a, b string) (count, unread int64, latest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.PrivateMessage{}).Scopes(betweenPair(a, b))
	}
	if err = base().Count(&count).Error; err != nil {
		return 0, 0, nil, err
	}
	if count == 0 {
		return 0, 0, nil, nil
	}
	if err = base().Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return 0, 0, nil, err
	}
	// ORDER BY + LIMIT instead of MAX(): SQLite returns MAX(datetime) as TEXT.
	var row struct{ CreatedAt time.Time }
	if err = base().Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, nil, err
	}
	return count, unread, &row.CreatedAt, nil
}

// RoomMessagesStats returns the number of messages in a room and the newest
// created_at (nil when empty).
func RoomMessagesStats(ctx context.Context, db *gorm.DB, roomID string) (count int64, latest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.RoomMessage{}).Where("room_id = ?", roomID)
	}
	if err = base().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct{ CreatedAt time.Time }
	if err = base().Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
