package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/observability"
	"github.com/tbourn/medic-community-backend/internal/search"
)

// ReferenceRepo defines the repository contract required by ReferenceService.
type ReferenceRepo interface {
	ListReference(ctx context.Context, db *gorm.DB, kind domain.ReferenceKind) ([]domain.ReferenceItem, error)
	UpsertReference(ctx context.Context, db *gorm.DB, item *domain.ReferenceItem) error
}

// JSONCache is a cache-aside store for JSON values.
type JSONCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

// ReferenceNamespace seeds deterministic ids for imported reference items,
// so re-importing the same title updates instead of duplicating.
var ReferenceNamespace = uuid.MustParse("6f1c2a7e-3b5d-4c8e-9a0f-1d2e3f4a5b6c")

// ReferenceID returns the deterministic id for (kind, title).
func ReferenceID(kind domain.ReferenceKind, title string) string {
	return uuid.NewSHA1(ReferenceNamespace, []byte(string(kind)+":"+strings.TrimSpace(title))).String()
}

// ReferenceService serves read-mostly treatment reference content (drug
// sheets, emergency algorithms). Lists are cached when a cache is configured.
type ReferenceService struct {
	DB       *gorm.DB
	Repo     ReferenceRepo
	Profiles ProfileRepo
	Cache    JSONCache // optional
}

// NewReferenceService constructs a ReferenceService. cache may be nil.
func NewReferenceService(db *gorm.DB, r ReferenceRepo, profiles ProfileRepo, cache JSONCache) *ReferenceService {
	return &ReferenceService{DB: db, Repo: r, Profiles: profiles, Cache: cache}
}

func referenceCacheKey(kind domain.ReferenceKind) string { return "reference:" + string(kind) }

// List returns the items of kind ordered by title.
func (s *ReferenceService) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.ReferenceItem, error) {
	ctx, span := otel.Tracer("services/ReferenceService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("reference.kind", string(kind))))
	defer span.End()

	if !kind.Valid() {
		return nil, ErrInvalidReference
	}

	key := referenceCacheKey(kind)
	if s.Cache != nil {
		var cached []domain.ReferenceItem
		hit, err := s.Cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			observability.ReferenceCache.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("key", key).Msg("reference cache read failed")
		case hit:
			observability.ReferenceCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		default:
			observability.ReferenceCache.WithLabelValues("miss").Inc()
		}
	}

	items, err := s.Repo.ListReference(ctx, s.DB, kind)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list reference: %w", err)
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, items); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("reference cache write failed")
		}
	}
	return items, nil
}

// Search ranks every reference item against query and returns up to k hits.
func (s *ReferenceService) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	ctx, span := otel.Tracer("services/ReferenceService").Start(ctx, "Search",
		trace.WithAttributes(attribute.Int("k", k)))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var docs []search.Document
	for _, kind := range []domain.ReferenceKind{domain.KindDrug, domain.KindAlgorithm} {
		items, err := s.List(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			docs = append(docs, search.Document{ID: it.ID, Title: it.Title, Body: it.Body})
		}
	}

	hits := search.NewIndex(docs).TopK(query, k)
	if hits == nil {
		hits = []search.Result{}
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, nil
}

// Upsert creates or replaces a reference item on behalf of actorID, who must
// be an admin. A blank id is derived from kind and title. Cached lists are
// invalidated afterwards.
func (s *ReferenceService) Upsert(ctx context.Context, actorID string, item domain.ReferenceItem) (*domain.ReferenceItem, error) {
	ctx, span := otel.Tracer("services/ReferenceService").Start(ctx, "Upsert",
		trace.WithAttributes(
			attribute.String("actor.id", actorID),
			attribute.String("reference.kind", string(item.Kind)),
		))
	defer span.End()

	item.Title = strings.TrimSpace(item.Title)
	item.Body = strings.TrimSpace(item.Body)
	item.ID = strings.TrimSpace(item.ID)
	if !item.Kind.Valid() || item.Title == "" || len(item.ID) > 64 {
		return nil, ErrInvalidReference
	}
	if item.ID == "" {
		item.ID = ReferenceID(item.Kind, item.Title)
	}

	if _, err := requireAdmin(ctx, s.DB, s.Profiles, actorID); err != nil {
		return nil, err
	}
	items := []domain.ReferenceItem{item}
	if err := s.Import(ctx, items); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &items[0], nil
}

// Import upserts items without a permission check and invalidates the cache.
// It backs the seeder and Upsert.
func (s *ReferenceService) Import(ctx context.Context, items []domain.ReferenceItem) error {
	for i := range items {
		if err := s.Repo.UpsertReference(ctx, s.DB, &items[i]); err != nil {
			return fmt.Errorf("upsert reference %q: %w", items[i].Title, err)
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *ReferenceService) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	keys := []string{referenceCacheKey(domain.KindDrug), referenceCacheKey(domain.KindAlgorithm)}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("reference cache invalidation failed")
	}
}
