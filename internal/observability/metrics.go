package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP-level instrumentation lives in the middleware package;
// these track what the community features actually do.
var (
	// RoomDecisions counts access decisions by the rule that produced them.
	RoomDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_access_decisions_total",
			Help: "Room access decisions by reason.",
		},
		[]string{"reason"},
	)

	// MessagesSent counts persisted messages by kind (room, private).
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Messages persisted, by kind.",
		},
		[]string{"kind"},
	)

	// MessagesMarkedRead counts private messages flipped to read.
	MessagesMarkedRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "private_messages_marked_read_total",
			Help: "Private messages marked as read.",
		},
	)

	// StaleRequests counts conversation loads discarded because a newer one
	// superseded them.
	StaleRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_stale_requests_total",
			Help: "Conversation loads discarded as stale.",
		},
	)

	// BadgeRefreshes counts unread-badge refresh attempts by result (ok, error).
	BadgeRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unread_badge_refreshes_total",
			Help: "Unread badge refreshes by result.",
		},
		[]string{"result"},
	)

	// ReferenceCache counts reference-list cache lookups by result (hit, miss, error).
	ReferenceCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_cache_lookups_total",
			Help: "Reference content cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RoomDecisions,
		MessagesSent,
		MessagesMarkedRead,
		StaleRequests,
		BadgeRefreshes,
		ReferenceCache,
	)
}
