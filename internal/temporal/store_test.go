package temporal_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/otoscore/otoscore/internal/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	profileStore = temporal.NewStore[models.ProfileRecent, *models.ProfileRecent](
		"profile_recent", "profile_history")
	scoreStore = temporal.NewStore[models.ScoreRecent, *models.ScoreRecent](
		"score_recent", "score_history")
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ProfileRecent{},
		&models.ProfileHistory{},
		&models.ScoreRecent{},
		&models.ScoreHistory{},
	))
	return db
}

func profileAt(rating int) *models.ProfileRecent {
	return &models.ProfileRecent{
		PlayerID: "player-1",
		ProfileFields: models.ProfileFields{
			CardName: "CARD",
			Rating:   rating,
			Title:    "title",
		},
	}
}

var (
	t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(24 * time.Hour)
	t2 = t1.Add(24 * time.Hour)
)

func TestUpsertCreatesOpenInterval(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))

	cur, err := profileStore.GetCurrent(db, map[string]any{"player_id": "player-1"})
	require.NoError(t, err)
	assert.True(t, cur.PeriodStart.Equal(t0))
	assert.Nil(t, cur.PeriodEnd)
	assert.Equal(t, 5000, cur.Rating)
}

func TestUpsertIdenticalFieldsIsNoOp(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t1))

	var historyCount int64
	require.NoError(t, db.Table("profile_history").Count(&historyCount).Error)
	assert.Zero(t, historyCount)

	cur, err := profileStore.GetCurrent(db, map[string]any{"player_id": "player-1"})
	require.NoError(t, err)
	assert.True(t, cur.PeriodStart.Equal(t0), "unchanged fields must not restart the interval")
}

func TestUpsertHistoryTilesWithoutGaps(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(6000), t1))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(7000), t2))

	var history []models.ProfileHistory
	require.NoError(t, db.Order("period_start asc").Find(&history).Error)
	require.Len(t, history, 2)

	assert.True(t, history[0].PeriodStart.Equal(t0))
	require.NotNil(t, history[0].PeriodEnd)
	assert.True(t, history[0].PeriodEnd.Equal(t1))

	assert.True(t, history[1].PeriodStart.Equal(t1))
	require.NotNil(t, history[1].PeriodEnd)
	assert.True(t, history[1].PeriodEnd.Equal(t2))

	cur, err := profileStore.GetCurrent(db, map[string]any{"player_id": "player-1"})
	require.NoError(t, err)
	assert.True(t, cur.PeriodStart.Equal(t2))
	assert.Nil(t, cur.PeriodEnd)

	var recentCount int64
	require.NoError(t, db.Table("profile_recent").Count(&recentCount).Error)
	assert.EqualValues(t, 1, recentCount, "exactly one current row per key")
}

func TestDeleteCurrentArchives(t *testing.T) {
	db := newTestDB(t)
	key := map[string]any{"player_id": "player-1"}

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))
	require.NoError(t, profileStore.DeleteCurrent(db, key, t1))

	_, err := profileStore.GetCurrent(db, key)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var history []models.ProfileHistory
	require.NoError(t, db.Find(&history).Error)
	require.Len(t, history, 1)
	assert.True(t, history[0].PeriodStart.Equal(t0))
	require.NotNil(t, history[0].PeriodEnd)
	assert.True(t, history[0].PeriodEnd.Equal(t1))
}

func TestDeleteCurrentMissingKey(t *testing.T) {
	db := newTestDB(t)

	err := profileStore.DeleteCurrent(db, map[string]any{"player_id": "nobody"}, t0)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestAsOf(t *testing.T) {
	db := newTestDB(t)
	scope := map[string]any{"player_id": "player-1"}

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(6000), t1))

	// Before any data exists.
	before, after, err := profileStore.AsOf(db, scope, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, before)
	assert.Empty(t, after)

	// At the first write: only the opening row.
	before, after, err = profileStore.AsOf(db, scope, t0)
	require.NoError(t, err)
	assert.Empty(t, before)
	require.Len(t, after, 1)
	assert.Equal(t, 5000, after[0].Rating)

	// At the boundary: deterministic before/after pairing.
	before, after, err = profileStore.AsOf(db, scope, t1)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, 5000, before[0].Rating)
	require.Len(t, after, 1)
	assert.Equal(t, 6000, after[0].Rating)

	// Far in the future: the current row.
	before, after, err = profileStore.AsOf(db, scope, t2.Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, before)
	require.Len(t, after, 1)
	assert.Equal(t, 6000, after[0].Rating)
}

func TestBoundariesAscendingDistinct(t *testing.T) {
	db := newTestDB(t)
	scope := map[string]any{"player_id": "player-1"}

	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(5000), t0))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(6000), t1))
	require.NoError(t, profileStore.UpsertCurrent(db, profileAt(7000), t2))

	boundaries, err := profileStore.Boundaries(db, scope)
	require.NoError(t, err)
	require.Len(t, boundaries, 3)
	assert.True(t, boundaries[0].Equal(t0))
	assert.True(t, boundaries[1].Equal(t1))
	assert.True(t, boundaries[2].Equal(t2))
}

func TestScoreKeysAreIndependent(t *testing.T) {
	db := newTestDB(t)

	score := func(songID uint, difficulty int, value float64) *models.ScoreRecent {
		return &models.ScoreRecent{
			PlayerID:    "player-1",
			SongID:      songID,
			Difficulty:  difficulty,
			ScoreFields: models.ScoreFields{Score: value},
		}
	}

	require.NoError(t, scoreStore.UpsertCurrent(db, score(7, 2, 50), t0))
	require.NoError(t, scoreStore.UpsertCurrent(db, score(7, 3, 80), t0))
	require.NoError(t, scoreStore.UpsertCurrent(db, score(7, 2, 75), t1))

	cur, err := scoreStore.GetCurrent(db, map[string]any{
		"player_id": "player-1", "song_id": 7, "difficulty": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(80), cur.Score)
	assert.True(t, cur.PeriodStart.Equal(t0), "other keys must be untouched by the upsert")

	var history []models.ScoreHistory
	require.NoError(t, db.Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, float64(50), history[0].Score)
	assert.Equal(t, 2, history[0].Difficulty)
}
