package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

// DefaultIdempotencyTTL bounds how long a send can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService records processed private sends so a client retry with
// the same Idempotency-Key returns the original message instead of sending
// twice. Records are keyed by (user, conversation id, key).
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration

	now func() time.Time
}

// NewIdempotencyService constructs an IdempotencyService. A ttl <= 0 uses
// DefaultIdempotencyTTL.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{DB: db, TTL: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Seen reports whether an unexpired record exists. It matches the lookup
// signature the idempotency middleware expects.
func (s *IdempotencyService) Seen(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	if s == nil || s.DB == nil || strings.TrimSpace(key) == "" {
		return false, nil
	}
	_, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ReplayPrivate returns the private message recorded under key, if any.
// Lookup failures are treated as a miss so the send proceeds normally.
func (s *IdempotencyService) ReplayPrivate(ctx context.Context, userID, scope, key string) (*domain.PrivateMessage, bool) {
	if s == nil || s.DB == nil || strings.TrimSpace(key) == "" {
		return nil, false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, s.now())
	if err != nil {
		return nil, false
	}
	m, err := repo.GetPrivateMessage(ctx, s.DB, rec.MessageID)
	if err != nil {
		log.Warn().Err(err).Str("message_id", rec.MessageID).Msg("idempotency record points at a missing message")
		return nil, false
	}
	return m, true
}

// Remember stores messageID under key. A concurrent duplicate is not an
// error: the first writer wins.
func (s *IdempotencyService) Remember(ctx context.Context, userID, scope, key, messageID string) error {
	if s == nil || s.DB == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, messageID, http.StatusCreated, s.TTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		return err
	}
	return nil
}

// Purge drops expired records.
func (s *IdempotencyService) Purge(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, nil
	}
	return repo.PurgeIdempotency(ctx, s.DB, s.now())
}

// RunPurger calls Purge every interval until ctx ends.
func (s *IdempotencyService) RunPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("idempotency purge failed")
			case n > 0:
				log.Debug().Int64("deleted", n).Msg("expired idempotency records purged")
			}
		}
	}
}
