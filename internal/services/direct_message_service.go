// Package services – DirectMessageService
//
// DirectMessageService owns two-party private conversations: sending,
// loading a conversation with sender display info, marking it read, the
// inbox, and the unread badge. Every conversation is addressed by the
// canonical id from domain.ConversationID, so both participants read and
// write the same rows.
//
// Opening a conversation is guarded per viewer and conversation: when a
// newer open of the same conversation by the same member starts before an
// older one finishes, the older one is discarded without marking anything
// read. Opens of different conversations do not interfere.
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

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/observability"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

// UnknownSenderName is shown for senders whose profile no longer exists.
const UnknownSenderName = "Bilinmeyen"

// PrivateMessageRepo defines the repository contract required by
// DirectMessageService.
type PrivateMessageRepo interface {
	CreatePrivateMessage(ctx context.Context, db *gorm.DB, senderID, receiverID, content string) (*domain.PrivateMessage, error)
	ListConversation(ctx context.Context, db *gorm.DB, a, b string) ([]domain.PrivateMessage, error)
	MarkConversationRead(ctx context.Context, db *gorm.DB, receiverID, senderID string) (int64, error)
	CountUnread(ctx context.Context, db *gorm.DB, receiverID string) (int64, error)
	UnreadBySender(ctx context.Context, db *gorm.DB, receiverID string) (map[string]int64, error)
	ListLatestPerConversation(ctx context.Context, db *gorm.DB, userID string) ([]domain.PrivateMessage, error)
	ConversationStats(ctx context.Context, db *gorm.DB, a, b string) (int64, int64, *time.Time, error)
}

// BadgeRefresher keeps a member's unread count current.
type BadgeRefresher interface {
	Refresh(ctx context.Context, userID string) (int64, error)
	Cached(ctx context.Context, userID string) (int64, bool)
}

// DisplayMessage is a private message with its sender's display fields.
type DisplayMessage struct {
	domain.PrivateMessage
	SenderName   string `json:"sender_name"`
	SenderBranch string `json:"sender_branch"`
	IsOwn        bool   `json:"is_own"`
}

// ConversationView is the result of opening a conversation.
type ConversationView struct {
	ConversationID string           `json:"conversation_id"`
	PeerID         string           `json:"peer_id"`
	Messages       []DisplayMessage `json:"messages"`
	MarkedRead     int64            `json:"marked_read"`
}

// ConversationSummary is one inbox row: the latest message of a
// conversation, the peer, and the viewer's unread count in it.
type ConversationSummary struct {
	ConversationID string                `json:"conversation_id"`
	PeerID         string                `json:"peer_id"`
	PeerName       string                `json:"peer_name"`
	PeerBranch     string                `json:"peer_branch"`
	LastMessage    domain.PrivateMessage `json:"last_message"`
	UnreadCount    int64                 `json:"unread_count"`
}

// DirectMessageService coordinates private messaging.
type DirectMessageService struct {
	DB       *gorm.DB
	Messages PrivateMessageRepo
	Profiles ProfileRepo
	Badge    BadgeRefresher
	Guard    *ScreenGuard

	// MaxContentRunes caps message bodies; <= 0 uses DefaultMaxContentRunes.
	MaxContentRunes int
}

// NewDirectMessageService constructs a DirectMessageService with a fresh
// ScreenGuard.
func NewDirectMessageService(db *gorm.DB, msgs PrivateMessageRepo, profiles ProfileRepo, badge BadgeRefresher, maxRunes int) *DirectMessageService {
	return &DirectMessageService{
		DB:              db,
		Messages:        msgs,
		Profiles:        profiles,
		Badge:           badge,
		Guard:           NewScreenGuard(),
		MaxContentRunes: maxRunes,
	}
}

// Send validates and stores a message from senderID to receiverID. All input
// validation happens before the store is touched.
func (s *DirectMessageService) Send(ctx context.Context, senderID, receiverID, content string) (*domain.PrivateMessage, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("sender.id", senderID),
			attribute.String("receiver.id", receiverID),
			attribute.Int("content.len", len(content)),
		))
	defer span.End()

	senderID, receiverID = strings.TrimSpace(senderID), strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return nil, ErrMissingParticipant
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	body, err := normalizeContent(content, s.MaxContentRunes)
	if err != nil {
		return nil, err
	}

	if _, err := s.Profiles.GetProfile(ctx, s.DB, receiverID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load receiver: %w", err)
	}

	m, err := s.Messages.CreatePrivateMessage(ctx, s.DB, senderID, receiverID, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("send message: %w", err)
	}
	observability.MessagesSent.WithLabelValues("private").Inc()
	span.SetAttributes(attribute.String("conversation.id", m.ConversationID))

	// receiver's badge grew by one
	s.refreshBadge(ctx, receiverID)
	return m, nil
}

// FetchConversation returns every message of conversationID oldest first,
// each with its sender's name and branch. Senders without a profile show as
// UnknownSenderName; if profiles cannot be loaded at all the call fails
// rather than returning messages without display info.
func (s *DirectMessageService) FetchConversation(ctx context.Context, conversationID, currentUserID string) ([]DisplayMessage, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "FetchConversation",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", currentUserID),
		))
	defer span.End()

	if strings.TrimSpace(currentUserID) == "" {
		return nil, ErrUnauthenticated
	}
	peerID, ok := domain.ConversationPeer(conversationID, currentUserID)
	if !ok {
		return nil, ErrNotParticipant
	}
	return s.fetch(ctx, span, currentUserID, peerID)
}

func (s *DirectMessageService) fetch(ctx context.Context, span trace.Span, viewerID, peerID string) ([]DisplayMessage, error) {
	rows, err := s.Messages.ListConversation(ctx, s.DB, viewerID, peerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	if len(rows) == 0 {
		return []DisplayMessage{}, nil
	}

	ids := make([]string, 0, 2)
	seen := make(map[string]struct{}, 2)
	for _, m := range rows {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	profiles, err := s.Profiles.GetProfilesByIDs(ctx, s.DB, ids)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrProfilesUnavailable, err)
	}
	byID := make(map[string]domain.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]DisplayMessage, len(rows))
	for i, m := range rows {
		dm := DisplayMessage{
			PrivateMessage: m,
			SenderName:     UnknownSenderName,
			IsOwn:          m.SenderID == viewerID,
		}
		if p, ok := byID[m.SenderID]; ok {
			dm.SenderName, dm.SenderBranch = p.FullName, p.Branch
		}
		out[i] = dm
	}
	span.SetAttributes(attribute.Int("messages.count", len(out)))
	return out, nil
}

// MarkConversationRead flips every unread message addressed to
// currentUserID in conversationID to read, then refreshes the badge. Messages
// sent by currentUserID are never touched. Calling it again is a no-op.
func (s *DirectMessageService) MarkConversationRead(ctx context.Context, conversationID, currentUserID string) (int64, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "MarkConversationRead",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", currentUserID),
		))
	defer span.End()

	if strings.TrimSpace(currentUserID) == "" {
		return 0, ErrUnauthenticated
	}
	peerID, ok := domain.ConversationPeer(conversationID, currentUserID)
	if !ok {
		return 0, ErrNotParticipant
	}
	return s.markRead(ctx, span, currentUserID, peerID)
}

func (s *DirectMessageService) markRead(ctx context.Context, span trace.Span, viewerID, peerID string) (int64, error) {
	n, err := s.Messages.MarkConversationRead(ctx, s.DB, viewerID, peerID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("mark read: %w", err)
	}
	observability.MessagesMarkedRead.Add(float64(n))
	span.SetAttributes(attribute.Int64("messages.marked", n))

	s.refreshBadge(ctx, viewerID)
	return n, nil
}

// Open loads the conversation between viewerID and peerID and marks it read.
// If a newer Open of the same conversation by the same viewer started
// meanwhile, or ctx ended, the result is discarded with ErrStaleRequest and
// nothing is marked read.
func (s *DirectMessageService) Open(ctx context.Context, viewerID, peerID string) (*ConversationView, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "Open",
		trace.WithAttributes(
			attribute.String("user.id", viewerID),
			attribute.String("peer.id", peerID),
		))
	defer span.End()

	viewerID, peerID = strings.TrimSpace(viewerID), strings.TrimSpace(peerID)
	if viewerID == "" {
		return nil, ErrUnauthenticated
	}
	if peerID == "" {
		return nil, ErrMissingParticipant
	}
	if viewerID == peerID {
		return nil, ErrSelfMessage
	}
	convID := domain.ConversationID(viewerID, peerID)

	ticket := s.Guard.Begin(viewerID, convID)
	defer s.Guard.End(ticket)

	msgs, err := s.fetch(ctx, span, viewerID, peerID)
	if err != nil {
		return nil, err
	}
	if !s.Guard.Current(ticket) || ctx.Err() != nil {
		observability.StaleRequests.Inc()
		span.SetAttributes(attribute.Bool("stale", true))
		return nil, ErrStaleRequest
	}

	n, err := s.markRead(ctx, span, viewerID, peerID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		for i := range msgs {
			if msgs[i].ReceiverID == viewerID {
				msgs[i].IsRead = true
			}
		}
	}

	return &ConversationView{
		ConversationID: convID,
		PeerID:         peerID,
		Messages:       msgs,
		MarkedRead:     n,
	}, nil
}

// Inbox returns one summary per conversation viewerID takes part in, newest
// first.
func (s *DirectMessageService) Inbox(ctx context.Context, viewerID string) ([]ConversationSummary, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "Inbox",
		trace.WithAttributes(attribute.String("user.id", viewerID)))
	defer span.End()

	if strings.TrimSpace(viewerID) == "" {
		return nil, ErrUnauthenticated
	}

	latest, err := s.Messages.ListLatestPerConversation(ctx, s.DB, viewerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list latest: %w", err)
	}
	if len(latest) == 0 {
		return []ConversationSummary{}, nil
	}
	unread, err := s.Messages.UnreadBySender(ctx, s.DB, viewerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("unread by sender: %w", err)
	}

	peers := make([]string, len(latest))
	for i, m := range latest {
		peers[i] = m.SenderID
		if m.SenderID == viewerID {
			peers[i] = m.ReceiverID
		}
	}
	profiles, err := s.Profiles.GetProfilesByIDs(ctx, s.DB, peers)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrProfilesUnavailable, err)
	}
	byID := make(map[string]domain.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]ConversationSummary, len(latest))
	for i, m := range latest {
		sum := ConversationSummary{
			ConversationID: m.ConversationID,
			PeerID:         peers[i],
			PeerName:       UnknownSenderName,
			LastMessage:    m,
			UnreadCount:    unread[peers[i]],
		}
		if p, ok := byID[peers[i]]; ok {
			sum.PeerName, sum.PeerBranch = p.FullName, p.Branch
		}
		out[i] = sum
	}
	return out, nil
}

// UnreadCount returns viewerID's unread private-message count, from the
// badge cache when available.
func (s *DirectMessageService) UnreadCount(ctx context.Context, viewerID string) (int64, error) {
	ctx, span := otel.Tracer("services/DirectMessageService").Start(ctx, "UnreadCount",
		trace.WithAttributes(attribute.String("user.id", viewerID)))
	defer span.End()

	if strings.TrimSpace(viewerID) == "" {
		return 0, ErrUnauthenticated
	}
	if s.Badge != nil {
		if n, ok := s.Badge.Cached(ctx, viewerID); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return n, nil
		}
	}
	n, err := s.Messages.CountUnread(ctx, s.DB, viewerID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// ConversationStats reports (count, unread, latest) for conversationID, for
// conditional GETs. The viewer must be a participant.
func (s *DirectMessageService) ConversationStats(ctx context.Context, conversationID, viewerID string) (int64, int64, *time.Time, error) {
	peerID, ok := domain.ConversationPeer(conversationID, viewerID)
	if !ok {
		return 0, 0, nil, ErrNotParticipant
	}
	return s.Messages.ConversationStats(ctx, s.DB, viewerID, peerID)
}

// refreshBadge recomputes userID's badge. Failures are logged and swallowed:
// the triggering operation already succeeded.
func (s *DirectMessageService) refreshBadge(ctx context.Context, userID string) {
	if s.Badge == nil {
		return
	}
	if _, err := s.Badge.Refresh(ctx, userID); err != nil {
		observability.BadgeRefreshes.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("user_id", userID).Msg("unread badge refresh failed")
		return
	}
	observability.BadgeRefreshes.WithLabelValues("ok").Inc()
}
