// Package repository holds the ranked store backing daily leaderboards: a
// sorted set of member scores paired with a hash of member payloads, both
// sharing one expiry.
package repository

import "context"

// AddRequest carries the arguments of the bounded insert primitive.
type AddRequest struct {
	ScoresKey    string
	ResultsKey   string
	MaxResults   int64
	ExpireAtUnix int64 // absolute expiry in unix seconds
	UID          string
	Score        float64
	Payload      []byte
}

// RankLookup is the combined answer of a rank query.
type RankLookup struct {
	Rank    int64 // 0-based, descending by score
	Count   int64
	Payload []byte
}

// RankedStore is the sorted-set + hash engine used by daily leaderboards.
type RankedStore interface {
	// Connected reports whether the store is reachable. It must not block on
	// a round trip.
	Connected(ctx context.Context) bool

	// AddResult atomically replaces the member, inserts it, trims the
	// partition to MaxResults by evicting the lowest scores, and refreshes the
	// expiry when the member survived. It returns the member's 0-based
	// descending rank, or retained=false when it was evicted.
	AddResult(ctx context.Context, req AddRequest) (rank int64, retained bool, err error)

	// Range returns the payloads of ranks [minRank, maxRank] (0-based,
	// inclusive) in native store order.
	Range(ctx context.Context, scoresKey, resultsKey string, minRank, maxRank int64) ([][]byte, error)

	// RankOf returns rank, cardinality and payload of uid in one round trip.
	// ok is false when uid is not in the partition.
	RankOf(ctx context.Context, scoresKey, resultsKey, uid string) (lookup RankLookup, ok bool, err error)

	// Count returns the cardinality of the scores structure.
	Count(ctx context.Context, scoresKey string) (int64, error)
}
