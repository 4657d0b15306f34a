package loadgen

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dailyboard/internal/domain/model"
)

// Generate builds cfg.Results submissions cycling over cfg.Users uids, so
// every uid is used once before any repeats. wpm values are rounded to two
// decimals so ties occur.
func Generate(cfg *Config, now time.Time) []model.ResultSubmission {
	rnd := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5bd1e995))

	uids := make([]string, cfg.Users)
	for i := range uids {
		uids[i] = uuid.NewString()
	}

	base := now.UnixMilli()
	out := make([]model.ResultSubmission, cfg.Results)
	for i := range out {
		uid := uids[i%len(uids)]
		wpm := round2(40 + rnd.Float64()*160)
		out[i] = model.ResultSubmission{
			UID:         uid,
			Name:        "user-" + uid[:8],
			WPM:         wpm,
			Raw:         round2(wpm + rnd.Float64()*10),
			Acc:         round2(85 + rnd.Float64()*15),
			Consistency: round2(50 + rnd.Float64()*50),
			Timestamp:   base + int64(i),
			Language:    cfg.Language,
			Mode:        cfg.Mode,
			Submode:     cfg.Submode,
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
