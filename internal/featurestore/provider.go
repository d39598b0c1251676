// Package featurestore defines the historical feature retrieval capability
// the extractor delegates to. Implementations own storage and the
// point-in-time join; callers only hand over feature references and an
// entity table.
package featurestore

import (
	"context"

	"featurepull/internal/table"
)

// TimestampColumn is the entity table column holding each row's event time.
const TimestampColumn = "event_timestamp"

// Provider retrieves feature values as of each entity row's event time.
type Provider interface {
	// HistoricalFeatures schedules retrieval of refs ("table:feature")
	// for every row in entities.
	HistoricalFeatures(ctx context.Context, refs []string, entities *table.Table) (RetrievalJob, error)
}

// RetrievalJob is the provider-native handle for a historical query.
type RetrievalJob interface {
	// ToTable materializes the result as entity columns followed by one
	// column per feature reference.
	ToTable(ctx context.Context) (*table.Table, error)
}
