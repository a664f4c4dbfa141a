package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

func newProfileSvc(t *testing.T) *ProfileService {
	t.Helper()
	db := newSvcDB(t)
	blocked := profile("blocked-admin", "Can", "Doktor", domain.RoleAdmin)
	blocked.IsBlocked = true
	seed(t, db,
		profile("adm", "Ayşe", "Doktor", domain.RoleAdmin),
		profile("mod", "Mehmet", "Hemşire", domain.RoleModerator),
		profile("usr", "Ali", "Ebe", domain.RoleUser),
		blocked,
	)
	return NewProfileService(db, repo.Store{})
}

func TestProfileService_Get(t *testing.T) {
	s := newProfileSvc(t)
	ctx := context.Background()

	p, err := s.Get(ctx, "usr")
	if err != nil || p.FullName != "Ali" {
		t.Fatalf("get: %+v %v", p, err)
	}
	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("want ErrProfileNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestProfileService_UpsertSelf(t *testing.T) {
	s := newProfileSvc(t)
	ctx := context.Background()

	p, err := s.UpsertSelf(ctx, "new", "  Deniz  ", " Paramedik ")
	if err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Deniz" || p.Branch != "Paramedik" || p.Role != domain.RoleUser {
		t.Fatalf("created: %+v", p)
	}

	// self-service never touches role
	p, err = s.UpsertSelf(ctx, "mod", "Mehmet K.", "Hemşire")
	if err != nil || p.Role != domain.RoleModerator || p.FullName != "Mehmet K." {
		t.Fatalf("update: %+v %v", p, err)
	}

	if _, err := s.UpsertSelf(ctx, "usr", strings.Repeat("a", 256), ""); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("want ErrInvalidProfile, got %v", err)
	}
	if _, err := s.UpsertSelf(ctx, "", "x", "y"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestProfileService_AdminUpdate(t *testing.T) {
	s := newProfileSvc(t)
	ctx := context.Background()

	p, err := s.AdminUpdate(ctx, "adm", "usr", strp(" Moderator "), nil)
	if err != nil || p.Role != domain.RoleModerator || p.IsBlocked {
		t.Fatalf("promote: %+v %v", p, err)
	}
	p, err = s.AdminUpdate(ctx, "adm", "usr", nil, boolp(true))
	if err != nil || p.Role != domain.RoleModerator || !p.IsBlocked {
		t.Fatalf("block: %+v %v", p, err)
	}

	cases := []struct {
		name          string
		actor, target string
		role          *string
		blocked       *bool
		want          error
	}{
		{"invalid role", "adm", "usr", strp("superuser"), nil, ErrInvalidRole},
		{"empty patch", "adm", "usr", nil, nil, ErrNothingToUpdate},
		{"moderator actor", "mod", "usr", strp("user"), nil, ErrForbidden},
		{"plain actor", "usr", "mod", strp("user"), nil, ErrForbidden},
		{"blocked admin", "blocked-admin", "usr", strp("user"), nil, ErrForbidden},
		{"unknown actor", "ghost", "usr", strp("user"), nil, ErrForbidden},
		{"anonymous", "", "usr", strp("user"), nil, ErrUnauthenticated},
		{"missing target", "adm", "ghost", strp("user"), nil, ErrProfileNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := s.AdminUpdate(ctx, c.actor, c.target, c.role, c.blocked); !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
		})
	}
}
