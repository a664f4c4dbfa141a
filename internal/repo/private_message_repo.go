package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// CreatePrivateMessage inserts an unread message from senderID to
// receiverID. The conversation id is always derived with
// domain.ConversationID.
func CreatePrivateMessage(ctx context.Context, db *gorm.DB, senderID, receiverID, content string) (*domain.PrivateMessage, error) {
	m := &domain.PrivateMessage{
		ID:             uuid.NewString(),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		ConversationID: domain.ConversationID(senderID, receiverID),
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetPrivateMessage fetches a message by id, or ErrNotFound.
func GetPrivateMessage(ctx context.Context, db *gorm.DB, id string) (*domain.PrivateMessage, error) {
	var m domain.PrivateMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// betweenPair narrows private_messages to rows exchanged between a and b.
// The conversation id alone is not enough: ids may contain "_", so
// ConversationID("a", "b_c") and ConversationID("a_b", "c") coincide.
func betweenPair(a, b string) func(*gorm.DB) *gorm.DB {
	pair := []string{a, b}
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("conversation_id = ? AND sender_id IN ? AND receiver_id IN ?",
			domain.ConversationID(a, b), pair, pair)
	}
}

// ListConversation returns every message exchanged between a and b, oldest
// first (created_at ASC, id ASC).
func ListConversation(ctx context.Context, db *gorm.DB, a, b string) ([]domain.PrivateMessage, error) {
	out := []domain.PrivateMessage{}
	err := db.WithContext(ctx).
		Scopes(betweenPair(a, b)).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkConversationRead flips every unread message from senderID to
// receiverID to read, as one UPDATE statement. It returns the number of rows
// changed; a second call with nothing new returns 0.
func MarkConversationRead(ctx context.Context, db *gorm.DB, receiverID, senderID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.PrivateMessage{}).
		Where("conversation_id = ? AND sender_id = ? AND receiver_id = ? AND is_read = ?",
			domain.ConversationID(receiverID, senderID), senderID, receiverID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread returns how many messages addressed to receiverID are unread,
// across all conversations.
func CountUnread(ctx context.Context, db *gorm.DB, receiverID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.PrivateMessage{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&n).Error
	return n, err
}

// UnreadBySender returns unread counts for receiverID keyed by sender.
// Senders with nothing unread are absent.
func UnreadBySender(ctx context.Context, db *gorm.DB, receiverID string) (map[string]int64, error) {
	var rows []struct {
		SenderID string
		Unread   int64
	}
	err := db.WithContext(ctx).
		Model(&domain.PrivateMessage{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.SenderID] = r.Unread
	}
	return out, nil
}

// ListLatestPerConversation returns the newest message of every
// conversation userID takes part in, newest conversation first. A
// conversation is the participant pair, not just the conversation id.
func ListLatestPerConversation(ctx context.Context, db *gorm.DB, userID string) ([]domain.PrivateMessage, error) {
	out := []domain.PrivateMessage{}
	err := db.WithContext(ctx).Raw(`
		SELECT pm.* FROM private_messages pm
		WHERE (pm.sender_id = ? OR pm.receiver_id = ?)
		  AND NOT EXISTS (
			SELECT 1 FROM private_messages x
			WHERE x.conversation_id = pm.conversation_id
			  AND x.sender_id IN (pm.sender_id, pm.receiver_id)
			  AND x.receiver_id IN (pm.sender_id, pm.receiver_id)
			  AND (x.created_at > pm.created_at OR (x.created_at = pm.created_at AND x.id > pm.id))
		  )
		ORDER BY pm.created_at DESC, pm.id DESC`, userID, userID).
		Scan(&out).Error
	return out, err
}
