package kafka

import "time"

// FavoriteChangedEvent represents a favorite being added or removed
type FavoriteChangedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    uint      `json:"user_id"`
	ProductID int       `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogReconciledEvent reports the outcome of a reconciliation run
type CatalogReconciledEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Status    string    `json:"status"`
	Checked   int       `json:"checked"`
	Updated   int       `json:"updated"`
	Created   int       `json:"created"`
	Unchanged int       `json:"unchanged"`
	Stale     int       `json:"stale"`
	FailedIDs []int     `json:"failed_ids,omitempty"`
	Duration  string    `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeFavoriteAdded     = "favorite.added"
	EventTypeFavoriteRemoved   = "favorite.removed"
	EventTypeCatalogReconciled = "catalog.reconciled"
)

// Kafka topics
const (
	TopicFavoriteEvents = "favorite-events"
	TopicCatalogEvents  = "catalog-events"
)
