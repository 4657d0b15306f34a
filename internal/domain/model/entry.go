// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strconv"
	"strings"
)

// LeaderboardEntry is one row of a daily leaderboard partition.
// A uid appears at most once per partition; a resubmission replaces the row.
type LeaderboardEntry struct {
	UID         string  `json:"uid"`
	Name        string  `json:"name"`
	WPM         float64 `json:"wpm"`
	Raw         float64 `json:"raw"`
	Acc         float64 `json:"acc"`
	Consistency float64 `json:"consistency"`
	Timestamp   int64   `json:"timestamp"` // epoch ms
}

// ResultSubmission is an already validated result handed over by ingestion.
type ResultSubmission struct {
	UID         string  `json:"uid" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	WPM         float64 `json:"wpm" validate:"gte=0"`
	Raw         float64 `json:"raw" validate:"gte=0"`
	Acc         float64 `json:"acc" validate:"gte=0,lte=100"`
	Consistency float64 `json:"consistency" validate:"gte=0,lte=100"`
	Timestamp   int64   `json:"timestamp" validate:"gt=0"`
	Language    string  `json:"language" validate:"required"`
	Mode        string  `json:"mode" validate:"required"`
	Submode     string  `json:"submode" validate:"required"`
}

// Entry projects the submission onto the stored leaderboard row.
func (r ResultSubmission) Entry() LeaderboardEntry {
	return LeaderboardEntry{
		UID:         r.UID,
		Name:        r.Name,
		WPM:         r.WPM,
		Raw:         r.Raw,
		Acc:         r.Acc,
		Consistency: r.Consistency,
		Timestamp:   r.Timestamp,
	}
}

// Fingerprint identifies one result of one user, so a redelivered
// submission can be recognized.
func (r ResultSubmission) Fingerprint() string {
	return strings.Join([]string{r.UID, r.Language, r.Mode, r.Submode, strconv.FormatInt(r.Timestamp, 10)}, ":")
}

// RankedEntry is a leaderboard row annotated with its 1-based rank.
// Count is the partition cardinality and is only filled by rank lookups.
type RankedEntry struct {
	Rank  int   `json:"rank"`
	Count int64 `json:"count,omitempty"`
	LeaderboardEntry
}

// Compare orders entries for display: wpm desc, then acc desc, then
// timestamp asc. It returns a negative number when a sorts before b.
func Compare(a, b LeaderboardEntry) int {
	switch {
	case a.WPM > b.WPM:
		return -1
	case a.WPM < b.WPM:
		return 1
	case a.Acc > b.Acc:
		return -1
	case a.Acc < b.Acc:
		return 1
	case a.Timestamp < b.Timestamp:
		return -1
	case a.Timestamp > b.Timestamp:
		return 1
	}
	return 0
}

// SortEntries sorts entries in place using Compare. Entries that compare equal
// keep their incoming (native store) order.
func SortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Compare(entries[i], entries[j]) < 0
	})
}
