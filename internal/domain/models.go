// Package domain defines the persistence models shared by the repository and
// service layers: member profiles, branch chat rooms and their messages,
// private messages, and reference content. The types are mapped with GORM.
package domain

import "time"

// Role is a member's platform role. Admins and moderators may enter every
// room unless they are blocked.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Elevated reports whether r carries the room access override.
func (r Role) Elevated() bool { return r == RoleAdmin || r == RoleModerator }

// UserProfile is a community member. Branch is the free-text professional
// title the member registered with ("Doktor", "Paramedik", ...). It is not
// normalized; room access matches it against a synonym table.
//
// Fields:
//   - ID: identity-provider subject, immutable.
//   - Role: admin, moderator or user; changed only by admins.
//   - IsBlocked: voids the admin/moderator override when set.
type UserProfile struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	FullName  string    `json:"full_name"  gorm:"type:varchar(255);not null;default:''"`
	Role      Role      `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:chk_profiles_role,role IN ('admin','moderator','user')"`
	Branch    string    `json:"branch"     gorm:"type:varchar(255);not null;default:''"`
	IsBlocked bool      `json:"is_blocked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "profiles" }

// ChatRoom is a topic room. A nil or empty RequiredBranch opens the room to
// every member; otherwise the member's branch must match it.
type ChatRoom struct {
	ID             string    `json:"id"              gorm:"type:varchar(64);primaryKey"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	Emoji          string    `json:"emoji"           gorm:"type:varchar(16);not null;default:''"`
	Description    string    `json:"description"     gorm:"type:text;not null;default:''"`
	RequiredBranch *string   `json:"required_branch" gorm:"type:varchar(255)"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatRoom.
func (ChatRoom) TableName() string { return "chat_rooms" }

// RoomMessage is a message posted to a chat room.
type RoomMessage struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	RoomID    string    `json:"room_id"    gorm:"type:varchar(64);not null;index:idx_room_msgs,priority:1"`
	SenderID  string    `json:"sender_id"  gorm:"type:varchar(64);not null;index"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_room_msgs,priority:2"`

	Room   ChatRoom    `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender UserProfile `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE"`
}

// TableName returns the database table name for RoomMessage.
func (RoomMessage) TableName() string { return "room_messages" }

// PrivateMessage is one message of a two-party conversation. ConversationID
// is always ConversationID(SenderID, ReceiverID). Rows are inserted unread
// and only ever flipped to read by the receiver.
type PrivateMessage struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	SenderID       string    `json:"sender_id"       gorm:"type:varchar(64);not null;index"`
	ReceiverID     string    `json:"receiver_id"     gorm:"type:varchar(64);not null;index:idx_pm_receiver_unread,priority:1"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(160);not null;index:idx_pm_conversation,priority:1"`
	IsRead         bool      `json:"is_read"         gorm:"not null;default:false;index:idx_pm_receiver_unread,priority:2"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_pm_conversation,priority:2"`

	Sender   UserProfile `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE"`
	Receiver UserProfile `json:"-" gorm:"foreignKey:ReceiverID;references:ID;constraint:OnUpdate:CASCADE"`
}

// TableName returns the database table name for PrivateMessage.
func (PrivateMessage) TableName() string { return "private_messages" }

// ReferenceKind groups reference content.
type ReferenceKind string

const (
	KindDrug      ReferenceKind = "drug"
	KindAlgorithm ReferenceKind = "algorithm"
)

// Valid reports whether k is a known reference kind.
func (k ReferenceKind) Valid() bool { return k == KindDrug || k == KindAlgorithm }

// ReferenceItem is a read-mostly treatment reference entry (drug sheet or
// emergency algorithm).
type ReferenceItem struct {
	ID        string        `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Kind      ReferenceKind `json:"kind"       gorm:"type:varchar(16);not null;index;check:chk_reference_kind,kind IN ('drug','algorithm')"`
	Title     string        `json:"title"      gorm:"type:varchar(255);not null"`
	Body      string        `json:"body"       gorm:"type:text;not null;default:''"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName returns the database table name for ReferenceItem.
func (ReferenceItem) TableName() string { return "reference_items" }
