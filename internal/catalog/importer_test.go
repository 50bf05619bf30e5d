package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Song{}))
	return db
}

const officialJSON = `[
	{"category": "SEGA", "title": "Song Seven",
	 "lev_eas": "2", "lev_bas": "5", "lev_adv": "8",
	 "lev_exp": "11", "lev_mas": "13", "lev_remas": " "},
	{"category": "SEGA", "title": "Song Eight",
	 "lev_eas": "3", "lev_bas": "6", "lev_adv": "9",
	 "lev_exp": "12", "lev_mas": "13+", "lev_remas": "14"},
	{"category": "SEGA", "title": "Not In Database",
	 "lev_eas": "1", "lev_bas": "2", "lev_adv": "3",
	 "lev_exp": "4", "lev_mas": "5", "lev_remas": " "}
]`

const overseasCSV = `category,name,english_name,japan_only,version,inactive
SEGA,Song Seven,Seventh Song,Y,6.5,N
SEGA,Song Eight,Eighth Song,N,3.0,Y
`

func newSourceServer(t *testing.T) (*httptest.Server, Sources) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/songs.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, officialJSON)
	})
	mux.HandleFunc("/overseas.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, overseasCSV)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, Sources{
		OfficialJSONURL: srv.URL + "/songs.json",
		OverseasCSVURL:  srv.URL + "/overseas.csv",
	}
}

func seedSong(t *testing.T, db *gorm.DB, seq int, name string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Song{
		Seq:      seq,
		Category: "SEGA",
		Name:     name,
		Levels:   models.StringArray{"1"},
		Active:   true,
	}).Error)
}

func TestRunMergesBothSources(t *testing.T) {
	db := newTestDB(t)
	seedSong(t, db, 0, "Song Seven")
	seedSong(t, db, 1, "Song Eight")

	_, src := newSourceServer(t)
	require.NoError(t, Run(context.Background(), db, src))

	seven, err := database.GetSongByIdentity(db, "SEGA", "Song Seven", false)
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{"2", "5", "8", "11", "13"}, seven.Levels)
	require.NotNil(t, seven.EnglishName)
	assert.Equal(t, "Seventh Song", *seven.EnglishName)
	assert.True(t, seven.JapanOnly)
	require.NotNil(t, seven.Version)
	assert.Equal(t, 6.5, *seven.Version)
	assert.True(t, seven.Active)

	eight, err := database.GetSongByIdentity(db, "SEGA", "Song Eight", false)
	require.NoError(t, err)
	// Re:MASTER level present, so six entries.
	assert.Equal(t, models.StringArray{"3", "6", "9", "12", "13+", "14"}, eight.Levels)
	assert.False(t, eight.JapanOnly)
	assert.False(t, eight.Active, "overseas inactive flag must retire the song")

	// Unknown upstream titles never create rows.
	var count int64
	require.NoError(t, db.Model(&models.Song{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRunUpstreamFailure(t *testing.T) {
	db := newTestDB(t)
	seedSong(t, db, 0, "Song Seven")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	err := Run(context.Background(), db, Sources{
		OfficialJSONURL: srv.URL + "/songs.json",
		OverseasCSVURL:  srv.URL + "/overseas.csv",
	})
	require.Error(t, err)

	// The catalog is untouched on failure.
	song, err := database.GetSongByIdentity(db, "SEGA", "Song Seven", false)
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{"1"}, song.Levels)
}
