// Package access decides which chat rooms a member may enter and in which
// order rooms are listed. Everything here is a pure function of its inputs:
// no I/O, no logging, no cached decisions.
package access

import (
	"strings"

	"github.com/tbourn/medic-community-backend/internal/domain"
)

// GeneralRoomID is the room every member may enter.
const GeneralRoomID = "genel"

// Reason names the rule that produced a decision.
type Reason string

const (
	ReasonRoleOverride Reason = "role_override"
	ReasonOpenRoom     Reason = "open_room"
	ReasonBranchMatch  Reason = "branch_match"
	ReasonSynonymMatch Reason = "synonym_match"
	ReasonDenied       Reason = "denied"
)

// Decision is the admission result for one (room, member) pair.
// MemberCount is not computed from membership data and is always 0.
type Decision struct {
	RoomID        string `json:"room_id"`
	IsUserAllowed bool   `json:"is_user_allowed"`
	MemberCount   int    `json:"member_count"`
	Reason        Reason `json:"-"`
}

// Resolver applies the room admission rules using a synonym table.
type Resolver struct {
	synonyms SynonymTable
}

// NewResolver returns a Resolver backed by table.
func NewResolver(table SynonymTable) Resolver {
	return Resolver{synonyms: table}
}

var defaultResolver = NewResolver(DefaultSynonyms())

// Resolve decides room admission for user with the default synonym table.
func Resolve(room domain.ChatRoom, user *domain.UserProfile) Decision {
	return defaultResolver.Resolve(room, user)
}

// ResolveAll returns one decision per room, in input order.
func ResolveAll(rooms []domain.ChatRoom, user *domain.UserProfile) []Decision {
	return defaultResolver.ResolveAll(rooms, user)
}

// Resolve evaluates the rules in order, first match wins:
//
//  1. admin or moderator that is not blocked
//  2. the general room, or a room without a required branch
//  3. branch equals the required branch
//  4. branch is an accepted synonym of the required branch
//
// Anything else is denied. A nil user has no role and no branch.
func (r Resolver) Resolve(room domain.ChatRoom, user *domain.UserProfile) Decision {
	d := Decision{RoomID: room.ID}

	var (
		role    domain.Role
		branch  string
		blocked bool
	)
	if user != nil {
		role, branch, blocked = user.Role, user.Branch, user.IsBlocked
	}

	required := ""
	if room.RequiredBranch != nil {
		required = strings.TrimSpace(*room.RequiredBranch)
	}

	switch {
	case role.Elevated() && !blocked:
		d.IsUserAllowed, d.Reason = true, ReasonRoleOverride
	case room.ID == GeneralRoomID || required == "":
		d.IsUserAllowed, d.Reason = true, ReasonOpenRoom
	case branch == *room.RequiredBranch:
		d.IsUserAllowed, d.Reason = true, ReasonBranchMatch
	case r.synonyms.Accepts(*room.RequiredBranch, branch):
		d.IsUserAllowed, d.Reason = true, ReasonSynonymMatch
	default:
		d.Reason = ReasonDenied
	}
	return d
}

// ResolveAll returns one decision per room, in input order.
func (r Resolver) ResolveAll(rooms []domain.ChatRoom, user *domain.UserProfile) []Decision {
	out := make([]Decision, len(rooms))
	for i, room := range rooms {
		out[i] = r.Resolve(room, user)
	}
	return out
}
