package access

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// roomPriority is the curated listing order, general chat first.
var roomPriority = func() map[string]int {
	m := make(map[string]int, len(defaultCatalog))
	for i, e := range defaultCatalog {
		m[e.id] = i
	}
	return m
}()

// PriorityOrder returns the curated room ids in listing order.
func PriorityOrder() []string {
	out := make([]string, len(defaultCatalog))
	for i, e := range defaultCatalog {
		out[i] = e.id
	}
	return out
}

// SortRooms returns rooms in listing order without modifying the input.
// Rooms in the priority list come first by list position. The remaining
// rooms follow, ordered by display name under Turkish collation; equal
// names keep their input order.
func SortRooms(rooms []domain.ChatRoom) []domain.ChatRoom {
	out := make([]domain.ChatRoom, len(rooms))
	copy(out, rooms)

	// collate.Collator keeps internal buffers; one per call.
	col := collate.New(language.Turkish)

	sort.SliceStable(out, func(i, j int) bool {
		pi, iListed := roomPriority[out[i].ID]
		pj, jListed := roomPriority[out[j].ID]
		switch {
		case iListed && jListed:
			return pi < pj
		case iListed != jListed:
			return iListed
		default:
			return col.CompareString(out[i].Name, out[j].Name) < 0
		}
	})
	return out
}
