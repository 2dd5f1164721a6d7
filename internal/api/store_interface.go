package api

import "github.com/pulsedash/pulsedash/internal/services"

// Store is the full persistence surface the router wires into the services.
// It is the union of the narrow per-service interfaces, so one backend (the
// SQLite store or the in-memory store) satisfies every service at once.
type Store interface {
	services.AuthStore
	services.ClusterStore
	services.PostStore
	services.ResponseStore
	services.SentimentStore
	services.DashboardStore
	services.DemographicStore

	ListAudit() []services.AuditEntry
}

var _ Store = (*MemoryStore)(nil)
