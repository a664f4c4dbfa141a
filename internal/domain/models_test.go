package domain

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&UserProfile{}, &ChatRoom{}, &RoomMessage{}, &PrivateMessage{}, &ReferenceItem{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(UserProfile{}).TableName():    "profiles",
		(ChatRoom{}).TableName():       "chat_rooms",
		(RoomMessage{}).TableName():    "room_messages",
		(PrivateMessage{}).TableName(): "private_messages",
		(ReferenceItem{}).TableName():  "reference_items",
		(Idempotency{}).TableName():    "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestRole(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleModerator, RoleUser} {
		if !r.Valid() {
			t.Fatalf("%q should be valid", r)
		}
	}
	if Role("owner").Valid() || Role("").Valid() {
		t.Fatalf("unknown roles must be invalid")
	}
	if !RoleAdmin.Elevated() || !RoleModerator.Elevated() || RoleUser.Elevated() {
		t.Fatalf("Elevated mismatch")
	}
}

func TestReferenceKind(t *testing.T) {
	if !KindDrug.Valid() || !KindAlgorithm.Valid() || ReferenceKind("survey").Valid() {
		t.Fatalf("ReferenceKind.Valid mismatch")
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	for _, tbl := range []any{&UserProfile{}, &ChatRoom{}, &RoomMessage{}, &PrivateMessage{}, &ReferenceItem{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&PrivateMessage{}, "idx_pm_conversation") {
		t.Fatalf("expected index idx_pm_conversation")
	}
	if !m.HasIndex(&PrivateMessage{}, "idx_pm_receiver_unread") {
		t.Fatalf("expected index idx_pm_receiver_unread")
	}
	if !m.HasIndex(&RoomMessage{}, "idx_room_msgs") {
		t.Fatalf("expected index idx_room_msgs")
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index ux_user_scope_key")
	}
}

func TestProfileDefaults_AndRoleCheck(t *testing.T) {
	db := newDomainDB(t)

	if err := db.Create(&UserProfile{ID: "u1", FullName: "Ayşe"}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	var got UserProfile
	if err := db.First(&got, "id = ?", "u1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Role != RoleUser || got.IsBlocked || got.Branch != "" {
		t.Fatalf("defaults not applied: %+v", got)
	}

	if err := db.Create(&UserProfile{ID: "u2", Role: "owner"}).Error; err == nil {
		t.Fatalf("expected check constraint violation for unknown role")
	}
}

func TestPrivateMessage_RequiresExistingProfiles(t *testing.T) {
	db := newDomainDB(t)

	msg := PrivateMessage{
		ID:             "m1",
		SenderID:       "ghost-a",
		ReceiverID:     "ghost-b",
		Content:        "merhaba",
		ConversationID: ConversationID("ghost-a", "ghost-b"),
	}
	if err := db.Create(&msg).Error; err == nil {
		t.Fatalf("expected FK violation for unknown sender/receiver")
	}

	db.Create(&UserProfile{ID: "ghost-a"})
	db.Create(&UserProfile{ID: "ghost-b"})
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("insert with valid FKs: %v", err)
	}
}

func TestChatRoom_NullableRequiredBranch(t *testing.T) {
	db := newDomainDB(t)

	doktor := "Doktor"
	rooms := []ChatRoom{
		{ID: "genel", Name: "Genel Sohbet"},
		{ID: "doktor", Name: "Doktorlar", RequiredBranch: &doktor},
	}
	if err := db.Create(&rooms).Error; err != nil {
		t.Fatalf("create rooms: %v", err)
	}
	var open ChatRoom
	db.First(&open, "id = ?", "genel")
	if open.RequiredBranch != nil {
		t.Fatalf("expected NULL required_branch, got %q", *open.RequiredBranch)
	}
	var locked ChatRoom
	db.First(&locked, "id = ?", "doktor")
	if locked.RequiredBranch == nil || *locked.RequiredBranch != "Doktor" {
		t.Fatalf("required_branch not persisted: %+v", locked)
	}
}
