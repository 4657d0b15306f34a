package daily_test

import (
	"testing"
	"time"

	"github.com/okian/dailyboard/internal/adapters/repository"
	"github.com/okian/dailyboard/internal/domain/daily"
)

func TestDayStart(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC).UnixMilli()
	tests := []struct {
		name string
		in   int64
		want int64
	}{
		{"midnight", day, day},
		{"midday", day + 12*3600*1000, day},
		{"last ms", day + 86_400_000 - 1, day},
		{"next day", day + 86_400_000, day + 86_400_000},
		{"before epoch", -1, -86_400_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daily.DayStart(tt.in); got != tt.want {
				t.Errorf("DayStart(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpireAtUnix(t *testing.T) {
	if got := daily.ExpireAtUnix(86_400_000, 2); got != 3*86_400 {
		t.Errorf("ExpireAtUnix = %d, want %d", got, 3*86_400)
	}
	if got := daily.ExpireAtUnix(1_500, 0); got != 1 {
		t.Errorf("ExpireAtUnix floors: got %d", got)
	}
}

func TestComputeKeys(t *testing.T) {
	store := repository.NewMemoryStore()
	defer store.Close()

	noon := time.Date(2024, 3, 9, 12, 30, 0, 0, time.FixedZone("UTC+9", 9*3600))
	lb := daily.New("english", "time", "60", store, daily.WithCustomTime(noon.UnixMilli()))
	keys := lb.ComputeKeys()

	wantDay := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC).UnixMilli()
	if keys.DayTimestamp != wantDay {
		t.Fatalf("DayTimestamp = %d, want %d", keys.DayTimestamp, wantDay)
	}
	if keys.ScoresKey != "dailyLeaderboard:scores:english:time:60:1709942400000" {
		t.Errorf("ScoresKey = %q", keys.ScoresKey)
	}
	if keys.ResultsKey != "dailyLeaderboard:results:english:time:60:1709942400000" {
		t.Errorf("ResultsKey = %q", keys.ResultsKey)
	}

	clocked := daily.New("english", "time", "60", store,
		daily.WithKeyRoot("lb"),
		daily.WithClock(func() time.Time { return time.UnixMilli(wantDay + 1) }))
	if got := clocked.ComputeKeys().ScoresKey; got != "lb:scores:english:time:60:1709942400000" {
		t.Errorf("clocked ScoresKey = %q", got)
	}
}
