package model_test

import (
	"testing"

	model "github.com/okian/dailyboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	convey.Convey("Given two leaderboard entries", t, func() {
		base := model.LeaderboardEntry{UID: "a", WPM: 100, Acc: 95, Timestamp: 5}

		convey.Convey("When wpm differs", func() {
			other := base
			other.UID = "b"
			other.WPM = 90

			convey.Convey("Then the higher wpm sorts first", func() {
				convey.So(model.Compare(base, other), convey.ShouldBeLessThan, 0)
				convey.So(model.Compare(other, base), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When wpm ties and acc differs", func() {
			other := base
			other.UID = "b"
			other.Acc = 97

			convey.Convey("Then the higher acc sorts first", func() {
				convey.So(model.Compare(other, base), convey.ShouldBeLessThan, 0)
			})
		})

		convey.Convey("When wpm and acc tie", func() {
			other := base
			other.UID = "b"
			other.Timestamp = 3

			convey.Convey("Then the earlier timestamp sorts first", func() {
				convey.So(model.Compare(other, base), convey.ShouldBeLessThan, 0)
			})
		})

		convey.Convey("When all keys tie", func() {
			other := base
			other.UID = "b"

			convey.Convey("Then they compare equal", func() {
				convey.So(model.Compare(base, other), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestSortEntries(t *testing.T) {
	convey.Convey("Given entries in native store order", t, func() {
		entries := []model.LeaderboardEntry{
			{UID: "u5", WPM: 100, Acc: 95, Timestamp: 5},
			{UID: "u3", WPM: 100, Acc: 95, Timestamp: 3},
			{UID: "low", WPM: 80, Acc: 100, Timestamp: 1},
			{UID: "acc", WPM: 100, Acc: 99, Timestamp: 9},
			{UID: "dupA", WPM: 70, Acc: 90, Timestamp: 1},
			{UID: "dupB", WPM: 70, Acc: 90, Timestamp: 1},
		}

		model.SortEntries(entries)

		convey.Convey("Then they follow wpm desc, acc desc, timestamp asc", func() {
			got := make([]string, len(entries))
			for i, e := range entries {
				got[i] = e.UID
			}
			convey.So(got, convey.ShouldResemble, []string{"acc", "u3", "u5", "low", "dupA", "dupB"})
		})
	})
}

func TestResultSubmissionEntry(t *testing.T) {
	convey.Convey("Given a result submission", t, func() {
		sub := model.ResultSubmission{
			UID: "u1", Name: "alice", WPM: 120.5, Raw: 125, Acc: 97.2, Consistency: 80,
			Timestamp: 1700000000000, Language: "english", Mode: "time", Submode: "15",
		}

		convey.Convey("Then Entry drops the mode tuple", func() {
			convey.So(sub.Entry(), convey.ShouldResemble, model.LeaderboardEntry{
				UID: "u1", Name: "alice", WPM: 120.5, Raw: 125, Acc: 97.2, Consistency: 80, Timestamp: 1700000000000,
			})
		})

		convey.Convey("Then the fingerprint names the user, mode and timestamp", func() {
			convey.So(sub.Fingerprint(), convey.ShouldEqual, "u1:english:time:15:1700000000000")
			other := sub
			other.WPM = 10
			convey.So(other.Fingerprint(), convey.ShouldEqual, sub.Fingerprint())
			other.Timestamp++
			convey.So(other.Fingerprint(), convey.ShouldNotEqual, sub.Fingerprint())
		})
	})
}
