package ledger

import "context"

// ConsistencyLevel selects where a Query may read from.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary. Command handlers must use it, because a
	// decision based on replica data would be rejected by Append anyway.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica. Suitable for read-only views like the
	// checkout context or capacity overviews.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key holding the consistency level.
const ConsistencyLevelKey contextKey = "ledger.consistency_level"

// WithStrongConsistency marks ctx so that reads go to the primary.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency marks ctx so that reads may go to a replica.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel returns the level stored in ctx, StrongConsistency when none is set.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
