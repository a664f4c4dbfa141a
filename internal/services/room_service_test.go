package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/medic-community-backend/internal/access"
	"github.com/tbourn/medic-community-backend/internal/domain"
	"github.com/tbourn/medic-community-backend/internal/repo"
)

func newRoomSvc(t *testing.T) *RoomService {
	t.Helper()
	db := newSvcDB(t)
	if _, err := repo.EnsureRooms(context.Background(), db, access.DefaultRooms()); err != nil {
		t.Fatalf("ensure rooms: %v", err)
	}
	blocked := profile("blocked-admin", "Zeynep", "Ebe", domain.RoleAdmin)
	blocked.IsBlocked = true
	seed(t, db,
		profile("para", "Emre", "Paramedik", domain.RoleUser),
		profile("memur", "Fatma", "Sağlık Memuru (Hemşire)", domain.RoleUser),
		profile("mod", "Murat", "Diyetisyen", domain.RoleModerator),
		blocked,
	)
	return NewRoomService(db, repo.Store{}, repo.Store{}, 20)
}

func allowedSet(views []RoomView) map[string]bool {
	out := make(map[string]bool, len(views))
	for _, v := range views {
		out[v.ID] = v.Access.IsUserAllowed
	}
	return out
}

func TestRoomService_ListForUser(t *testing.T) {
	s := newRoomSvc(t)
	ctx := context.Background()

	views, err := s.ListForUser(ctx, "para")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != len(access.DefaultRooms()) {
		t.Fatalf("want every room listed, got %d", len(views))
	}
	for i, id := range access.PriorityOrder() {
		if views[i].ID != id {
			t.Fatalf("position %d: got %q want %q", i, views[i].ID, id)
		}
		if views[i].Access.RoomID != id || views[i].Access.MemberCount != 0 {
			t.Fatalf("decision mismatch at %d: %+v", i, views[i].Access)
		}
	}

	got := allowedSet(views)
	if !got["genel"] || !got["paramedik"] {
		t.Fatalf("paramedic must see general and own room: %v", got)
	}
	if got["doktor"] || got["hemsire"] {
		t.Fatalf("paramedic must not see other branch rooms: %v", got)
	}
}

func TestRoomService_ListForUser_SynonymsRolesAndAnonymous(t *testing.T) {
	s := newRoomSvc(t)
	ctx := context.Background()

	memur, err := s.ListForUser(ctx, "memur")
	if err != nil {
		t.Fatal(err)
	}
	if m := allowedSet(memur); !m["hemsire"] || !m["saglik-memuru"] || m["doktor"] {
		t.Fatalf("synonym branch must open both rooms only: %v", m)
	}

	mod, _ := s.ListForUser(ctx, "mod")
	for _, v := range mod {
		if !v.Access.IsUserAllowed {
			t.Fatalf("moderator must enter %q", v.ID)
		}
	}

	blocked, _ := s.ListForUser(ctx, "blocked-admin")
	if b := allowedSet(blocked); !b["ebe"] || b["doktor"] {
		t.Fatalf("blocked admin falls back to branch rules: %v", b)
	}

	for _, uid := range []string{"", "ghost"} {
		anon, err := s.ListForUser(ctx, uid)
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range anon {
			if v.Access.IsUserAllowed != (v.RequiredBranch == nil) {
				t.Fatalf("user %q room %q: only open rooms allowed", uid, v.ID)
			}
		}
	}
}

func TestRoomService_PostAndList(t *testing.T) {
	s := newRoomSvc(t)
	ctx := context.Background()

	m, err := s.PostMessage(ctx, "para", "paramedik", "  Vardiya devri 08:00  ")
	if err != nil {
		t.Fatal(err)
	}
	if m.Content != "Vardiya devri 08:00" || m.RoomID != "paramedik" || m.SenderID != "para" {
		t.Fatalf("stored message: %+v", m)
	}
	if _, err := s.PostMessage(ctx, "para", "genel", "herkese merhaba"); err != nil {
		t.Fatal(err)
	}

	items, total, err := s.ListMessages(ctx, "para", "paramedik", 1, 10)
	if err != nil || total != 1 || len(items) != 1 || items[0].ID != m.ID {
		t.Fatalf("list: total=%d items=%+v err=%v", total, items, err)
	}

	// page/pageSize defaults
	items, total, err = s.ListMessages(ctx, "mod", "paramedik", 0, 0)
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("defaults: total=%d items=%d err=%v", total, len(items), err)
	}

	empty, total, err := s.ListMessages(ctx, "para", "genel", 5, 10)
	if err != nil || total != 1 || len(empty) != 0 {
		t.Fatalf("page past the end: total=%d items=%d err=%v", total, len(empty), err)
	}
}

func TestRoomService_AccessErrors(t *testing.T) {
	s := newRoomSvc(t)
	ctx := context.Background()

	if _, err := s.PostMessage(ctx, "para", "doktor", "merhaba"); !errors.Is(err, ErrRoomAccessDenied) {
		t.Fatalf("want ErrRoomAccessDenied, got %v", err)
	}
	if n, _ := repo.CountRoomMessages(ctx, s.DB, "doktor"); n != 0 {
		t.Fatalf("denied post must not be stored, found %d", n)
	}
	if _, _, err := s.ListMessages(ctx, "para", "doktor", 1, 10); !errors.Is(err, ErrRoomAccessDenied) {
		t.Fatalf("want ErrRoomAccessDenied on read, got %v", err)
	}
	if _, _, err := s.Enter(ctx, "para", "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
	if _, err := s.PostMessage(ctx, "para", "nope", "x"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
	if _, err := s.PostMessage(ctx, "ghost", "genel", "x"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("want ErrProfileNotFound, got %v", err)
	}
	if _, err := s.PostMessage(ctx, " ", "genel", "x"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}

	room, d, err := s.Enter(ctx, "para", "paramedik")
	if err != nil || room.ID != "paramedik" || d.Reason != access.ReasonBranchMatch {
		t.Fatalf("enter own room: %+v %+v %v", room, d, err)
	}
}

func TestRoomService_ValidationBeforeStore(t *testing.T) {
	u := untouchable{t: t}
	s := &RoomService{Rooms: u, Profiles: u, Resolver: access.NewResolver(access.DefaultSynonyms()), MaxContentRunes: 5}
	ctx := context.Background()

	if _, err := s.PostMessage(ctx, "para", "genel", "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("want ErrEmptyContent, got %v", err)
	}
	if _, err := s.PostMessage(ctx, "para", "genel", strings.Repeat("ğ", 6)); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("want ErrContentTooLong, got %v", err)
	}
}

func TestRoomService_MessagesStats(t *testing.T) {
	s := newRoomSvc(t)
	ctx := context.Background()

	n, latest, err := s.MessagesStats(ctx, "para", "paramedik")
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty room: %d %v %v", n, latest, err)
	}
	if _, err := s.PostMessage(ctx, "para", "paramedik", "ilk"); err != nil {
		t.Fatal(err)
	}
	n, latest, err = s.MessagesStats(ctx, "para", "paramedik")
	if err != nil || n != 1 || latest == nil {
		t.Fatalf("after post: %d %v %v", n, latest, err)
	}
	if _, _, err := s.MessagesStats(ctx, "para", "doktor"); !errors.Is(err, ErrRoomAccessDenied) {
		t.Fatalf("want ErrRoomAccessDenied, got %v", err)
	}
}
