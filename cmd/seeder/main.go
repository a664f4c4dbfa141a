// Command seeder prepares a database: the default room catalog, optional demo
// members, and reference content imported from Markdown files.
//
//	seeder -drugs docs/ilaclar.md -algorithms docs/algoritmalar.md -demo
//
// Every step is idempotent; running it twice changes nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/medic-community-backend/internal/access"
	"github.com/tbourn/medic-community-backend/internal/cache"
	"github.com/tbourn/medic-community-backend/internal/config"
	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
	"github.com/tbourn/medic-community-backend/internal/search"
	"github.com/tbourn/medic-community-backend/internal/services"
	"github.com/tbourn/medic-community-backend/internal/sysutil"
)

type options struct {
	drugsPath      string
	algorithmsPath string
	demo           bool
}

type summary struct {
	rooms     int64
	profiles  int
	reference int
}

// demoProfiles are sample members covering an open room, a branch room and a
// synonym match. demo-admin moderates.
var demoProfiles = []struct {
	id, name, branch string
	role             domain.Role
}{
	{"demo-admin", "Sistem Yöneticisi", "Doktor", domain.RoleAdmin},
	{"demo-doktor", "Dr. Elif Kaya", "Doktor", domain.RoleUser},
	{"demo-paramedik", "Murat Şahin", "Paramedik", domain.RoleUser},
	{"demo-att", "Zeynep Arslan", "ATT", domain.RoleUser},
	{"demo-hemsire", "Ayşe Yılmaz", "Hemşire", domain.RoleModerator},
}

func main() {
	_ = godotenv.Load()

	var opt options
	flag.StringVar(&opt.drugsPath, "drugs", os.Getenv("REFERENCE_DRUGS_MD"), "Markdown file with drug sheets")
	flag.StringVar(&opt.algorithmsPath, "algorithms", os.Getenv("REFERENCE_ALGORITHMS_MD"), "Markdown file with emergency algorithms")
	flag.BoolVar(&opt.demo, "demo", sysutil.IsTruthy(os.Getenv("SEED_DEMO")), "create demo profiles")
	flag.Parse()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, "seeder", cfg.LogPretty)

	db, err := repo.Open(cfg.DB, false)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// A running server may hold cached reference lists; invalidate them.
	var refCache services.JSONCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		refCache = cache.NewRedis(rdb, "medic:", cfg.Redis.ReferenceTTL)
	}

	sum, err := seed(context.Background(), db, refCache, opt)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().
		Int64("rooms_created", sum.rooms).
		Int("profiles", sum.profiles).
		Int("reference_items", sum.reference).
		Msg("seeding completed")
}

func seed(ctx context.Context, db *gorm.DB, refCache services.JSONCache, opt options) (summary, error) {
	var sum summary

	n, err := repo.EnsureRooms(ctx, db, access.DefaultRooms())
	if err != nil {
		return sum, fmt.Errorf("rooms: %w", err)
	}
	sum.rooms = n

	if opt.demo {
		for _, p := range demoProfiles {
			if _, err := repo.UpsertProfile(ctx, db, p.id, p.name, p.branch); err != nil {
				return sum, fmt.Errorf("profile %s: %w", p.id, err)
			}
			if p.role != domain.RoleUser {
				role := p.role
				if _, err := repo.UpdateProfileAdmin(ctx, db, p.id, repo.ProfilePatch{Role: &role}); err != nil {
					return sum, fmt.Errorf("profile %s role: %w", p.id, err)
				}
			}
			sum.profiles++
		}
	}

	var items []domain.ReferenceItem
	for kind, path := range map[domain.ReferenceKind]string{
		domain.KindDrug:      opt.drugsPath,
		domain.KindAlgorithm: opt.algorithmsPath,
	} {
		if path == "" {
			continue
		}
		parsed, err := readReference(path, kind)
		if err != nil {
			return sum, err
		}
		items = append(items, parsed...)
	}
	if len(items) > 0 {
		svc := services.NewReferenceService(db, repo.Store{}, repo.Store{}, refCache)
		if err := svc.Import(ctx, items); err != nil {
			return sum, err
		}
		sum.reference = len(items)
	}
	return sum, nil
}

func readReference(path string, kind domain.ReferenceKind) ([]domain.ReferenceItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := search.ParseReferenceMarkdown(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items := make([]domain.ReferenceItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.ReferenceItem{
			ID:    services.ReferenceID(kind, e.Title),
			Kind:  kind,
			Title: e.Title,
			Body:  e.Body,
		})
	}
	log.Debug().Str("file", path).Str("kind", string(kind)).Int("items", len(items)).Msg("reference parsed")
	return items, nil
}
