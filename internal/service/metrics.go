package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Migration outcome label values.
const (
	outcomeMigrated     = "migrated"
	outcomeDegraded     = "degraded"
	outcomeFetchFailed  = "fetch_failed"
	outcomeNoGuestItems = "no_guest_items"
)

var (
	modeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_mode_transitions_total",
			Help: "Total number of wishlist mode transitions",
		},
		[]string{"to"},
	)

	guestMigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_guest_migrations_total",
			Help: "Total number of guest-to-authenticated transitions by outcome",
		},
		[]string{"outcome"},
	)

	guestMigratedItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_guest_migrated_items_total",
			Help: "Total number of guest wishlist items processed by migrations",
		},
		[]string{"result"},
	)
)
