package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

// DefaultMaxContentRunes caps message bodies when no limit is configured.
const DefaultMaxContentRunes = 1000

// normalizeContent trims surrounding whitespace and enforces the rune cap on
// exactly the text that will be stored. Inner whitespace is kept as sent.
func normalizeContent(raw string, max int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyContent
	}
	if max <= 0 {
		max = DefaultMaxContentRunes
	}
	if utf8.RuneCountInString(s) > max {
		return "", ErrContentTooLong
	}
	return s, nil
}

// ProfileRepo is the profile subset of the repository used by services.
type ProfileRepo interface {
	GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.UserProfile, error)
	GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.UserProfile, error)
}

// requireAdmin loads actorID and fails with ErrForbidden unless the member is
// an admin that is not blocked.
func requireAdmin(ctx context.Context, db *gorm.DB, profiles ProfileRepo, actorID string) (*domain.UserProfile, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, ErrUnauthenticated
	}
	actor, err := profiles.GetProfile(ctx, db, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if actor.Role != domain.RoleAdmin || actor.IsBlocked {
		return nil, ErrForbidden
	}
	return actor, nil
}
