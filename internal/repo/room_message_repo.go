package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// CreateRoomMessage inserts a message into a room.
func CreateRoomMessage(ctx context.Context, db *gorm.DB, roomID, senderID, content string) (*domain.RoomMessage, error) {
	m := &domain.RoomMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CountRoomMessages returns the number of messages in a room.
func CountRoomMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.RoomMessage{}).Where("room_id = ?", roomID).Count(&total).Error
	return total, err
}

// ListRoomMessagesPage returns a page of room messages, oldest first
// (created_at ASC, id ASC).
func ListRoomMessagesPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.RoomMessage, error) {
	out := []domain.RoomMessage{}
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
