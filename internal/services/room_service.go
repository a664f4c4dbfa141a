// Package services – RoomService
//
// RoomService lists the branch rooms with a per-member admission decision and
// gates room reads and posts on that decision. Admission rules live in the
// access package; this file only loads the inputs and applies the result.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/access"
	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/observability"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

// RoomRepo defines the repository contract required by RoomService.
type RoomRepo interface {
	ListRooms(ctx context.Context, db *gorm.DB) ([]domain.ChatRoom, error)
	GetRoom(ctx context.Context, db *gorm.DB, id string) (*domain.ChatRoom, error)
	CreateRoomMessage(ctx context.Context, db *gorm.DB, roomID, senderID, content string) (*domain.RoomMessage, error)
	CountRoomMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error)
	ListRoomMessagesPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.RoomMessage, error)
}

// RoomView is a room annotated with the current member's admission decision.
type RoomView struct {
	domain.ChatRoom
	Access access.Decision `json:"access"`
}

// RoomService provides room listing and access-gated room messaging.
type RoomService struct {
	DB       *gorm.DB
	Rooms    RoomRepo
	Profiles ProfileRepo
	Resolver access.Resolver

	// MaxContentRunes caps message bodies; <= 0 uses DefaultMaxContentRunes.
	MaxContentRunes int
}

// NewRoomService constructs a RoomService using the default synonym table.
func NewRoomService(db *gorm.DB, rooms RoomRepo, profiles ProfileRepo, maxRunes int) *RoomService {
	return &RoomService{
		DB:              db,
		Rooms:           rooms,
		Profiles:        profiles,
		Resolver:        access.NewResolver(access.DefaultSynonyms()),
		MaxContentRunes: maxRunes,
	}
}

// viewer loads the member for access decisions. A blank id or a missing
// profile yields nil, which the resolver treats as "no role, no branch".
func (s *RoomService) viewer(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	p, err := s.Profiles.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// ListForUser returns every room in display order, each with the member's
// admission decision.
func (s *RoomService) ListForUser(ctx context.Context, userID string) ([]RoomView, error) {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "ListForUser",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	user, err := s.viewer(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rooms, err := s.Rooms.ListRooms(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	sorted := access.SortRooms(rooms)
	decisions := s.Resolver.ResolveAll(sorted, user)

	out := make([]RoomView, len(sorted))
	allowed := 0
	for i := range sorted {
		out[i] = RoomView{ChatRoom: sorted[i], Access: decisions[i]}
		observability.RoomDecisions.WithLabelValues(string(decisions[i].Reason)).Inc()
		if decisions[i].IsUserAllowed {
			allowed++
		}
	}
	span.SetAttributes(attribute.Int("rooms.total", len(out)), attribute.Int("rooms.allowed", allowed))
	return out, nil
}

// Enter loads roomID and checks the member may use it.
func (s *RoomService) Enter(ctx context.Context, userID, roomID string) (*domain.ChatRoom, access.Decision, error) {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "Enter",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("room.id", roomID),
		))
	defer span.End()

	user, err := s.viewer(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, access.Decision{}, err
	}
	return s.admit(ctx, span, roomID, user)
}

// admit loads roomID and applies the access decision for user.
func (s *RoomService) admit(ctx context.Context, span trace.Span, roomID string, user *domain.UserProfile) (*domain.ChatRoom, access.Decision, error) {
	room, err := s.Rooms.GetRoom(ctx, s.DB, roomID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, access.Decision{}, ErrRoomNotFound
		}
		span.RecordError(err)
		return nil, access.Decision{}, fmt.Errorf("get room: %w", err)
	}

	d := s.Resolver.Resolve(*room, user)
	observability.RoomDecisions.WithLabelValues(string(d.Reason)).Inc()
	span.SetAttributes(attribute.String("access.reason", string(d.Reason)))
	if !d.IsUserAllowed {
		uid := ""
		if user != nil {
			uid = user.ID
		}
		log.Debug().Str("user_id", uid).Str("room_id", roomID).Msg("room access denied")
		return room, d, ErrRoomAccessDenied
	}
	return room, d, nil
}

// ListMessages returns a page of roomID's messages, oldest first, and the
// total count. The member must be admitted to the room.
func (s *RoomService) ListMessages(ctx context.Context, userID, roomID string, page, pageSize int) ([]domain.RoomMessage, int64, error) {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		))
	defer span.End()

	if _, _, err := s.Enter(ctx, userID, roomID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	total, err := s.Rooms.CountRoomMessages(ctx, s.DB, roomID)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if total == 0 {
		return []domain.RoomMessage{}, 0, nil
	}
	items, err := s.Rooms.ListRoomMessagesPage(ctx, s.DB, roomID, (page-1)*pageSize, pageSize)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	return items, total, nil
}

// MessagesStats reports (count, latest) for roomID, for conditional GETs.
// It applies the same admission check as ListMessages.
func (s *RoomService) MessagesStats(ctx context.Context, userID, roomID string) (int64, *time.Time, error) {
	if _, _, err := s.Enter(ctx, userID, roomID); err != nil {
		return 0, nil, err
	}
	return repo.RoomMessagesStats(ctx, s.DB, roomID)
}

// PostMessage validates content and appends it to roomID as userID. Content
// is validated before any store access.
func (s *RoomService) PostMessage(ctx context.Context, userID, roomID, content string) (*domain.RoomMessage, error) {
	ctx, span := otel.Tracer("services/RoomService").Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("room.id", roomID),
			attribute.Int("content.len", len(content)),
		))
	defer span.End()

	body, err := normalizeContent(content, s.MaxContentRunes)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.Profiles.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load profile: %w", err)
	}
	room, _, err := s.admit(ctx, span, roomID, user)
	if err != nil {
		return nil, err
	}

	m, err := s.Rooms.CreateRoomMessage(ctx, s.DB, room.ID, userID, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create room message: %w", err)
	}
	observability.MessagesSent.WithLabelValues("room").Inc()
	return m, nil
}
