package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// Store exposes the package functions as methods so services can depend on
// small interfaces and tests can swap in fakes.
type Store struct{}

func (Store) GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.UserProfile, error) {
	return GetProfile(ctx, db, id)
}

func (Store) GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.UserProfile, error) {
	return GetProfilesByIDs(ctx, db, ids)
}

func (Store) UpsertProfile(ctx context.Context, db *gorm.DB, id, fullName, branch string) (*domain.UserProfile, error) {
	return UpsertProfile(ctx, db, id, fullName, branch)
}

func (Store) UpdateProfileAdmin(ctx context.Context, db *gorm.DB, id string, patch ProfilePatch) (*domain.UserProfile, error) {
	return UpdateProfileAdmin(ctx, db, id, patch)
}

func (Store) ListRooms(ctx context.Context, db *gorm.DB) ([]domain.ChatRoom, error) {
	return ListRooms(ctx, db)
}

func (Store) GetRoom(ctx context.Context, db *gorm.DB, id string) (*domain.ChatRoom, error) {
	return GetRoom(ctx, db, id)
}

func (Store) CreateRoomMessage(ctx context.Context, db *gorm.DB, roomID, senderID, content string) (*domain.RoomMessage, error) {
	return CreateRoomMessage(ctx, db, roomID, senderID, content)
}

func (Store) CountRoomMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	return CountRoomMessages(ctx, db, roomID)
}

func (Store) ListRoomMessagesPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.RoomMessage, error) {
	return ListRoomMessagesPage(ctx, db, roomID, offset, limit)
}

func (Store) CreatePrivateMessage(ctx context.Context, db *gorm.DB, senderID, receiverID, content string) (*domain.PrivateMessage, error) {
	return CreatePrivateMessage(ctx, db, senderID, receiverID, content)
}

func (Store) ListConversation(ctx context.Context, db *gorm.DB, a, b string) ([]domain.PrivateMessage, error) {
	return ListConversation(ctx, db, a, b)
}

func (Store) MarkConversationRead(ctx context.Context, db *gorm.DB, receiverID, senderID string) (int64, error) {
	return MarkConversationRead(ctx, db, receiverID, senderID)
}

func (Store) ConversationStats(ctx context.Context, db *gorm.DB, a, b string) (int64, int64, *time.Time, error) {
	return ConversationStats(ctx, db, a, b)
}

func (Store) CountUnread(ctx context.Context, db *gorm.DB, receiverID string) (int64, error) {
	return CountUnread(ctx, db, receiverID)
}

func (Store) UnreadBySender(ctx context.Context, db *gorm.DB, receiverID string) (map[string]int64, error) {
	return UnreadBySender(ctx, db, receiverID)
}

func (Store) ListLatestPerConversation(ctx context.Context, db *gorm.DB, userID string) ([]domain.PrivateMessage, error) {
	return ListLatestPerConversation(ctx, db, userID)
}

func (Store) ListReference(ctx context.Context, db *gorm.DB, kind domain.ReferenceKind) ([]domain.ReferenceItem, error) {
	return ListReference(ctx, db, kind)
}

func (Store) UpsertReference(ctx context.Context, db *gorm.DB, item *domain.ReferenceItem) error {
	return UpsertReference(ctx, db, item)
}
