package loadgen

import (
	"errors"
	"fmt"
	"slices"

	"github.com/okian/dailyboard/internal/domain/model"
)

// Verify checks board against the submissions that reached the server.
// pageSize is the read page; display order is only guaranteed inside one
// page, across pages entries are only ordered by wpm.
//
// When every uid was submitted once, the board must also hold exactly the
// top min(maxResults, n) wpm values.
func Verify(subs []model.ResultSubmission, board []model.RankedEntry, maxResults int64, pageSize int) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if int64(len(board)) > maxResults {
		fail("board holds %d entries, bound is %d", len(board), maxResults)
	}

	known := make(map[string][]model.LeaderboardEntry, len(subs))
	for i := range subs {
		known[subs[i].UID] = append(known[subs[i].UID], subs[i].Entry())
	}

	seen := make(map[string]struct{}, len(board))
	for i, e := range board {
		if e.Rank != i+1 {
			fail("entry %d has rank %d", i, e.Rank)
		}
		if _, dup := seen[e.UID]; dup {
			fail("uid %s listed twice", e.UID)
		}
		seen[e.UID] = struct{}{}
		if !slices.Contains(known[e.UID], e.LeaderboardEntry) {
			fail("entry %s (wpm %.2f) was never submitted", e.UID, e.WPM)
		}
		if i == 0 {
			continue
		}
		prev := board[i-1].LeaderboardEntry
		if prev.WPM < e.WPM {
			fail("entry %d (wpm %.2f) above entry %d (wpm %.2f)", i-1, prev.WPM, i, e.WPM)
		}
		if pageSize > 0 && i/pageSize == (i-1)/pageSize && model.Compare(prev, e.LeaderboardEntry) > 0 {
			fail("entries %d and %d out of display order", i-1, i)
		}
	}

	if len(known) == len(subs) {
		want := make([]float64, 0, len(subs))
		for i := range subs {
			want = append(want, subs[i].WPM)
		}
		slices.Sort(want)
		slices.Reverse(want)
		if n := int(min(maxResults, int64(len(want)))); len(board) != n {
			fail("board holds %d entries, want %d", len(board), n)
		} else {
			for i, e := range board {
				if e.WPM != want[i] {
					fail("rank %d has wpm %.2f, want %.2f", i+1, e.WPM, want[i])
					break
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}
	return nil
}
