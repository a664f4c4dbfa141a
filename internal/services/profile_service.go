package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

const profileFieldMaxRunes = 255

// ProfileWriter is the write side of the profile repository.
type ProfileWriter interface {
	ProfileRepo
	UpsertProfile(ctx context.Context, db *gorm.DB, id, fullName, branch string) (*domain.UserProfile, error)
	UpdateProfileAdmin(ctx context.Context, db *gorm.DB, id string, patch repo.ProfilePatch) (*domain.UserProfile, error)
}

// ProfileService manages member profiles. Members edit their own name and
// branch; only admins change roles and the blocked flag.
type ProfileService struct {
	DB   *gorm.DB
	Repo ProfileWriter
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB, r ProfileWriter) *ProfileService {
	return &ProfileService{DB: db, Repo: r}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return p, nil
}

// UpsertSelf creates or updates the caller's own profile. Role and blocked
// state are never touched here.
func (s *ProfileService) UpsertSelf(ctx context.Context, userID, fullName, branch string) (*domain.UserProfile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "UpsertSelf",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	fullName, branch = strings.TrimSpace(fullName), strings.TrimSpace(branch)
	if utf8.RuneCountInString(fullName) > profileFieldMaxRunes || utf8.RuneCountInString(branch) > profileFieldMaxRunes {
		return nil, ErrInvalidProfile
	}

	p, err := s.Repo.UpsertProfile(ctx, s.DB, userID, fullName, branch)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

// AdminUpdate changes targetID's role and/or blocked flag on behalf of
// actorID, who must be an admin that is not blocked. Nil fields are left as
// they are.
func (s *ProfileService) AdminUpdate(ctx context.Context, actorID, targetID string, role *string, blocked *bool) (*domain.UserProfile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "AdminUpdate",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("target.id", targetID),
		))
	defer span.End()

	var patch repo.ProfilePatch
	if role != nil {
		r := domain.Role(strings.ToLower(strings.TrimSpace(*role)))
		if !r.Valid() {
			return nil, ErrInvalidRole
		}
		patch.Role = &r
	}
	patch.IsBlocked = blocked
	if patch.Role == nil && patch.IsBlocked == nil {
		return nil, ErrNothingToUpdate
	}

	if _, err := requireAdmin(ctx, s.DB, s.Repo, actorID); err != nil {
		return nil, err
	}

	p, err := s.Repo.UpdateProfileAdmin(ctx, s.DB, targetID, patch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update profile: %w", err)
	}
	log.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Str("role", string(p.Role)).
		Bool("blocked", p.IsBlocked).
		Msg("profile updated by admin")
	return p, nil
}
