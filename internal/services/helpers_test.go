package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed %T: %v", v, err)
		}
	}
}

func profile(id, name, branch string, role domain.Role) *domain.UserProfile {
	return &domain.UserProfile{ID: id, FullName: name, Branch: branch, Role: role}
}

// pm builds a private message with an explicit timestamp so ordering is
// deterministic.
func pm(id, from, to, content string, at time.Time) *domain.PrivateMessage {
	return &domain.PrivateMessage{
		ID:             id,
		SenderID:       from,
		ReceiverID:     to,
		Content:        content,
		ConversationID: domain.ConversationID(from, to),
		CreatedAt:      at,
	}
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// ---------- fakes ----------

// untouchable fails the test on any store access. Used to prove validation
// happens before the store is reached.
type untouchable struct{ t *testing.T }

func (u untouchable) fail(op string) { u.t.Helper(); u.t.Fatalf("unexpected store call: %s", op) }

func (u untouchable) GetProfile(context.Context, *gorm.DB, string) (*domain.UserProfile, error) {
	u.fail("GetProfile")
	return nil, nil
}
func (u untouchable) GetProfilesByIDs(context.Context, *gorm.DB, []string) ([]domain.UserProfile, error) {
	u.fail("GetProfilesByIDs")
	return nil, nil
}
func (u untouchable) ListRooms(context.Context, *gorm.DB) ([]domain.ChatRoom, error) {
	u.fail("ListRooms")
	return nil, nil
}
func (u untouchable) GetRoom(context.Context, *gorm.DB, string) (*domain.ChatRoom, error) {
	u.fail("GetRoom")
	return nil, nil
}
func (u untouchable) CreateRoomMessage(context.Context, *gorm.DB, string, string, string) (*domain.RoomMessage, error) {
	u.fail("CreateRoomMessage")
	return nil, nil
}
func (u untouchable) CountRoomMessages(context.Context, *gorm.DB, string) (int64, error) {
	u.fail("CountRoomMessages")
	return 0, nil
}
func (u untouchable) ListRoomMessagesPage(context.Context, *gorm.DB, string, int, int) ([]domain.RoomMessage, error) {
	u.fail("ListRoomMessagesPage")
	return nil, nil
}
func (u untouchable) CreatePrivateMessage(context.Context, *gorm.DB, string, string, string) (*domain.PrivateMessage, error) {
	u.fail("CreatePrivateMessage")
	return nil, nil
}
func (u untouchable) ListConversation(context.Context, *gorm.DB, string, string) ([]domain.PrivateMessage, error) {
	u.fail("ListConversation")
	return nil, nil
}
func (u untouchable) MarkConversationRead(context.Context, *gorm.DB, string, string) (int64, error) {
	u.fail("MarkConversationRead")
	return 0, nil
}
func (u untouchable) CountUnread(context.Context, *gorm.DB, string) (int64, error) {
	u.fail("CountUnread")
	return 0, nil
}
func (u untouchable) UnreadBySender(context.Context, *gorm.DB, string) (map[string]int64, error) {
	u.fail("UnreadBySender")
	return nil, nil
}
func (u untouchable) ConversationStats(context.Context, *gorm.DB, string, string) (int64, int64, *time.Time, error) {
	u.fail("ConversationStats")
	return 0, 0, nil, nil
}
func (u untouchable) ListLatestPerConversation(context.Context, *gorm.DB, string) ([]domain.PrivateMessage, error) {
	u.fail("ListLatestPerConversation")
	return nil, nil
}

// profilesHook wraps the real store and lets a test intercept the batch
// profile lookup.
type profilesHook struct {
	repo.Store
	byIDs func(ids []string) ([]domain.UserProfile, error)
}

func (p profilesHook) GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.UserProfile, error) {
	if p.byIDs != nil {
		return p.byIDs(ids)
	}
	return p.Store.GetProfilesByIDs(ctx, db, ids)
}

// fakeBadge records refreshes.
type fakeBadge struct {
	mu        sync.Mutex
	refreshed []string
	err       error
	cached    map[string]int64
}

func (f *fakeBadge) Refresh(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, userID)
	return 0, f.err
}

func (f *fakeBadge) Cached(_ context.Context, userID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.cached[userID]
	return n, ok
}

func (f *fakeBadge) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

// memCache is an in-memory JSONCache with injectable errors.
type memCache struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	deleted []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memCache) Set(_ context.Context, key string, v any) error {
	if m.setErr != nil {
		return m.setErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.deleted = append(m.deleted, keys...)
	if m.delErr != nil {
		return m.delErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
