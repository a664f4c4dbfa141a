package domain

import "strings"

const conversationSep = "_"

// ConversationID returns the canonical id of the conversation between a and
// b: both ids sorted ascending and joined with "_". It is symmetric, so both
// participants address the same rows. Never build the id any other way.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + conversationSep + b
}

// ConversationPeer returns the other member of conversationID as seen by
// userID, or false when userID is not a member. Ids may themselves contain
// "_", so the same conversation id can stand for more than one pair; storage
// lookups must filter on the pair, not on the id alone.
func ConversationPeer(conversationID, userID string) (string, bool) {
	if userID == "" || conversationID == "" {
		return "", false
	}
	if rest, ok := strings.CutPrefix(conversationID, userID+conversationSep); ok && rest != "" {
		if ConversationID(userID, rest) == conversationID {
			return rest, true
		}
	}
	if rest, ok := strings.CutSuffix(conversationID, conversationSep+userID); ok && rest != "" {
		if ConversationID(userID, rest) == conversationID {
			return rest, true
		}
	}
	return "", false
}
