package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

func TestNormalizeContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
		err  error
	}{
		{"empty", "", 10, "", ErrEmptyContent},
		{"whitespace only", " \n\t\r\n ", 10, "", ErrEmptyContent},
		{"trimmed", "  merhaba  ", 10, "merhaba", nil},
		{"inner newlines kept", "a\r\n\n\n\nb", 10, "a\r\n\n\n\nb", nil},
		{"inner newlines count", strings.Repeat("x", 499) + "\n\n\n" + strings.Repeat("x", 499), 1000, "", ErrContentTooLong},
		{"exactly max runes", strings.Repeat("ş", 5), 5, strings.Repeat("ş", 5), nil},
		{"one rune over", strings.Repeat("ş", 6), 5, "", ErrContentTooLong},
		{"trim before counting", "  " + strings.Repeat("x", 5) + "  ", 5, strings.Repeat("x", 5), nil},
		{"default cap", strings.Repeat("x", DefaultMaxContentRunes+1), 0, "", ErrContentTooLong},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := normalizeContent(c.in, c.max)
			if !errors.Is(err, c.err) {
				t.Fatalf("err = %v, want %v", err, c.err)
			}
			if got != c.want {
				t.Fatalf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestValidationErrorsWrapRoot(t *testing.T) {
	for _, err := range []error{
		ErrEmptyContent, ErrContentTooLong, ErrMissingParticipant, ErrSelfMessage,
		ErrInvalidRole, ErrInvalidProfile, ErrNothingToUpdate, ErrInvalidReference, ErrEmptyQuery,
	} {
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%v must wrap ErrValidation", err)
		}
	}
	if errors.Is(ErrRoomAccessDenied, ErrValidation) || errors.Is(ErrStaleRequest, ErrValidation) {
		t.Fatal("flow errors must not be validation errors")
	}
}

func TestRequireAdmin(t *testing.T) {
	db := newSvcDB(t)
	seed(t, db,
		profile("adm", "Ayşe", "Doktor", domain.RoleAdmin),
		profile("mod", "Mehmet", "Hemşire", domain.RoleModerator),
		profile("usr", "Ali", "Ebe", domain.RoleUser),
	)
	blocked := profile("adm-blocked", "Can", "Doktor", domain.RoleAdmin)
	blocked.IsBlocked = true
	seed(t, db, blocked)

	ctx := context.Background()
	cases := map[string]error{
		"":            ErrUnauthenticated,
		"ghost":       ErrForbidden,
		"usr":         ErrForbidden,
		"mod":         ErrForbidden,
		"adm-blocked": ErrForbidden,
		"adm":         nil,
	}
	for id, want := range cases {
		_, err := requireAdmin(ctx, db, repo.Store{}, id)
		if !errors.Is(err, want) {
			t.Fatalf("requireAdmin(%q) = %v, want %v", id, err, want)
		}
	}
}
