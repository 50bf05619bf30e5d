package tracker

import (
	"errors"
	"time"

	"github.com/otoscore/otoscore/internal/database/models"
	"gorm.io/gorm"
)

// CurrentState is a player's live profile and score set. Record is nil
// until the first submission.
type CurrentState struct {
	Record *models.ProfileRecent `json:"record,omitempty"`
	Scores []models.ScoreRecent  `json:"scores"`
}

func State(db *gorm.DB, playerID string) (*CurrentState, error) {
	scope := map[string]any{"player_id": playerID}
	state := &CurrentState{}

	// Both reads run in one transaction so a submission committing in
	// between cannot produce a profile from one version and scores from
	// another.
	err := db.Transaction(func(tx *gorm.DB) error {
		record, err := profiles.GetCurrent(tx, scope)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		state.Record = record
		state.Scores, err = scores.ListCurrent(tx, scope)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Boundaries merges the interval boundaries of both entity families for a
// player, ascending. Each returned instant is a valid argument to StateAt.
func Boundaries(db *gorm.DB, playerID string) ([]time.Time, error) {
	scope := map[string]any{"player_id": playerID}

	var merged []time.Time
	err := db.Transaction(func(tx *gorm.DB) error {
		stamps, err := profiles.Boundaries(tx, scope)
		if err != nil {
			return err
		}
		scoreStamps, err := scores.Boundaries(tx, scope)
		if err != nil {
			return err
		}
		merged = mergeSorted(stamps, scoreStamps)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeSorted(stamps, scoreStamps []time.Time) []time.Time {
	merged := make([]time.Time, 0, len(stamps)+len(scoreStamps))
	i, j := 0, 0
	for i < len(stamps) || j < len(scoreStamps) {
		switch {
		case j == len(scoreStamps):
			merged = append(merged, stamps[i])
			i++
		case i == len(stamps):
			merged = append(merged, scoreStamps[j])
			j++
		case stamps[i].Before(scoreStamps[j]):
			merged = append(merged, stamps[i])
			i++
		case scoreStamps[j].Before(stamps[i]):
			merged = append(merged, scoreStamps[j])
			j++
		default:
			merged = append(merged, stamps[i])
			i++
			j++
		}
	}
	return merged
}

// TimeSlice is the reconstructed state around one instant. Rows are tagged
// "before" when their interval ended exactly at the query time and "after"
// when it contains the query time, so querying a boundary shows both sides
// of the change.
type TimeSlice struct {
	Records []TaggedRecord `json:"records"`
	Scores  []TaggedScore  `json:"scores"`
}

type TaggedRecord struct {
	models.ProfileRecent
	From string `json:"from"`
}

type TaggedScore struct {
	models.ScoreRecent
	From string `json:"from"`
}

func StateAt(db *gorm.DB, playerID string, t time.Time) (*TimeSlice, error) {
	t = t.UTC()
	scope := map[string]any{"player_id": playerID}
	slice := &TimeSlice{
		Records: []TaggedRecord{},
		Scores:  []TaggedScore{},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		recBefore, recAfter, err := profiles.AsOf(tx, scope, t)
		if err != nil {
			return err
		}
		for _, r := range recBefore {
			slice.Records = append(slice.Records, TaggedRecord{ProfileRecent: r, From: "before"})
		}
		for _, r := range recAfter {
			slice.Records = append(slice.Records, TaggedRecord{ProfileRecent: r, From: "after"})
		}

		scoreBefore, scoreAfter, err := scores.AsOf(tx, scope, t)
		if err != nil {
			return err
		}
		// Zero-score placeholder rows are noise on a timeline.
		for _, s := range scoreBefore {
			if s.Score > 0 {
				slice.Scores = append(slice.Scores, TaggedScore{ScoreRecent: s, From: "before"})
			}
		}
		for _, s := range scoreAfter {
			if s.Score > 0 {
				slice.Scores = append(slice.Scores, TaggedScore{ScoreRecent: s, From: "after"})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slice, nil
}
