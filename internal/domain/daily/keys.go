package daily

import (
	"strconv"
	"strings"
)

// DefaultKeyRoot namespaces every partition key.
const DefaultKeyRoot = "dailyLeaderboard"

const dayMillis int64 = 24 * 60 * 60 * 1000

// Keys names one day's partition.
type Keys struct {
	DayTimestamp int64 // epoch ms of UTC midnight
	ScoresKey    string
	ResultsKey   string
}

// DayStart floors an epoch millisecond timestamp to UTC midnight.
func DayStart(ms int64) int64 {
	return floorDiv(ms, dayMillis) * dayMillis
}

// ExpireAtUnix returns the partition expiry in unix seconds: the day start
// plus the configured number of days.
func ExpireAtUnix(dayTimestamp, days int64) int64 {
	return floorDiv(dayTimestamp+days*dayMillis, 1000)
}

// PartitionKeys builds the scores and results keys of a partition.
func PartitionKeys(root, language, mode, submode string, dayTimestamp int64) Keys {
	suffix := strings.Join([]string{language, mode, submode, strconv.FormatInt(dayTimestamp, 10)}, ":")
	return Keys{
		DayTimestamp: dayTimestamp,
		ScoresKey:    root + ":scores:" + suffix,
		ResultsKey:   root + ":results:" + suffix,
	}
}

// ComputeKeys returns the keys of the partition for the current day, or the
// day of the fixed override when one was set.
func (lb *DailyLeaderboard) ComputeKeys() Keys {
	return PartitionKeys(lb.keyRoot, lb.language, lb.mode, lb.submode, DayStart(lb.nowMillis()))
}

func (lb *DailyLeaderboard) nowMillis() int64 {
	if lb.customTime != nil {
		return *lb.customTime
	}
	return lb.now().UnixMilli()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ModeKey is the registry key of a mode triple.
func ModeKey(language, mode, submode string) string {
	return language + ":" + mode + ":" + submode
}

