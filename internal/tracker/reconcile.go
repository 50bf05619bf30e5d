// Package tracker holds the domain core: submission validation, the
// reconciliation of a full score upload against stored current state, and
// the timeline queries built on the temporal store.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/otoscore/otoscore/internal/temporal"
	"gorm.io/gorm"
)

// The two entity families the tracker versions.
var (
	profiles = temporal.NewStore[models.ProfileRecent, *models.ProfileRecent](
		models.ProfileRecent{}.TableName(), models.ProfileHistory{}.TableName())
	scores = temporal.NewStore[models.ScoreRecent, *models.ScoreRecent](
		models.ScoreRecent{}.TableName(), models.ScoreHistory{}.TableName())
)

type storedScore struct {
	SongID     uint
	Difficulty int
	Score      float64
	Category   string
	Name       string
	Deluxe     bool
}

func chartKey(category, name string, deluxe bool, difficulty int) string {
	return fmt.Sprintf("%s\x00%s\x00%t\x00%d", category, name, deluxe, difficulty)
}

// ApplySubmission reconciles one full upload for player: the profile
// snapshot is upserted first, then every score item in order, then every
// chart the player previously had but no longer submitted is retired. The
// whole flow runs in a single transaction; any validation failure aborts
// it with zero writes observable.
func ApplySubmission(db *gorm.DB, player *models.Player, sub *Submission, now time.Time) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	now = now.UTC()

	return db.Transaction(func(tx *gorm.DB) error {
		stored, err := loadStoredScores(tx, player.ID)
		if err != nil {
			return err
		}

		// Non-decreasing rule, checked for every item before any write.
		toRetire := make(map[string]storedScore, len(stored))
		for k, v := range stored {
			toRetire[k] = v
		}
		for i := range sub.Scores {
			item := &sub.Scores[i]
			key := chartKey(item.Category, item.SongName, item.Deluxe, item.Difficulty)
			if old, ok := stored[key]; ok && item.Score < old.Score {
				return Validationf("score %v for %q is lower than recorded %v",
					item.Score, item.SongName, old.Score)
			}
			delete(toRetire, key)
		}

		profile := &models.ProfileRecent{
			PlayerID: player.ID,
			ProfileFields: models.ProfileFields{
				CardName:  sub.CardName,
				Rating:    sub.Rating,
				MaxRating: sub.MaxRating,
				Title:     sub.Title,
				Class:     sub.Class,
			},
		}
		if err := profiles.UpsertCurrent(tx, profile, now); err != nil {
			return err
		}

		for i := range sub.Scores {
			item := &sub.Scores[i]
			if err := applyScoreItem(tx, player.ID, item, i, now); err != nil {
				return err
			}
		}

		for _, old := range toRetire {
			err := scores.DeleteCurrent(tx, map[string]any{
				"player_id":  player.ID,
				"song_id":    old.SongID,
				"difficulty": old.Difficulty,
			}, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func applyScoreItem(tx *gorm.DB, playerID string, item *ScoreItem, seq int, now time.Time) error {
	// A difficulty-0 item doubles as catalog metadata: it fixes the song's
	// display sequence and revives its active flag.
	if item.Difficulty == 0 {
		err := database.UpsertSongSeq(tx, &models.Song{
			Seq:      seq,
			Category: item.Category,
			Name:     item.SongName,
			Deluxe:   item.Deluxe,
			Active:   true,
		})
		if err != nil {
			return err
		}
	}

	song, err := database.GetSongByIdentity(tx, item.Category, item.SongName, item.Deluxe)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Validationf("unknown song %q (%s)", item.SongName, item.Category)
	}
	if err != nil {
		return err
	}

	for len(song.Levels) <= item.Difficulty {
		song.Levels = append(song.Levels, "")
	}
	if song.Levels[item.Difficulty] != item.Level {
		song.Levels[item.Difficulty] = item.Level
		if err := database.UpdateSong(tx, song); err != nil {
			return err
		}
	}

	snap := &models.ScoreRecent{
		PlayerID:   playerID,
		SongID:     song.ID,
		Difficulty: item.Difficulty,
		ScoreFields: models.ScoreFields{
			Score:    item.Score,
			RawScore: item.RawScore,
			Flag:     item.Flag,
		},
	}
	return scores.UpsertCurrent(tx, snap, now)
}

func loadStoredScores(tx *gorm.DB, playerID string) (map[string]storedScore, error) {
	var rows []storedScore
	err := tx.Table("score_recent").
		Select("score_recent.song_id, score_recent.difficulty, score_recent.score, songs.category, songs.name, songs.deluxe").
		Joins("join songs on songs.id = score_recent.song_id").
		Where("score_recent.player_id = ?", playerID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stored := make(map[string]storedScore, len(rows))
	for _, row := range rows {
		stored[chartKey(row.Category, row.Name, row.Deluxe, row.Difficulty)] = row
	}
	return stored, nil
}
