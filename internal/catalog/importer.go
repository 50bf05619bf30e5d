// Package catalog reconciles song metadata from the upstream sources into
// the songs table. It runs out-of-band from the API server and never
// touches player data.
package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Category names differ between the official JSON and the score pages the
// capture script reads.
var categoryFromJSON = map[string]string{
	"POPS＆アニメ":            "POPS ＆ アニメ",
	"niconico & ボーカロイド":   "niconico ＆ ボーカロイド™",
	"東方Project":           "東方Project",
	"SEGA":                "SEGA",
	"ゲーム & バラエティ":         "ゲーム ＆ バラエティ",
	"オリジナル & ジョイポリス":      "オリジナル ＆ ジョイポリス",
}

// Title fixups where the JSON and the score pages disagree.
var officialNames = map[string]string{
	"Yet Another ”drizzly rain” ": "Yet Another ”drizzly rain”",
	"Pursuing My True Self ":      "Pursuing My True Self",
	"D✪N’T  ST✪P  R✪CKIN’":        "DON’T  STOP  ROCKIN’",
}

type Sources struct {
	OfficialJSONURL string
	OverseasCSVURL  string
}

type officialSong struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	LevEas   string `json:"lev_eas"`
	LevBas   string `json:"lev_bas"`
	LevAdv   string `json:"lev_adv"`
	LevExp   string `json:"lev_exp"`
	LevMas   string `json:"lev_mas"`
	LevRemas string `json:"lev_remas"`
}

type overseasRow struct {
	category    string
	name        string
	englishName string
	japanOnly   string
	version     string
	inactive    string
}

// Run merges both upstream sources into the stored catalog and commits
// every change in one transaction. Songs missing from the database are
// logged and skipped; the submission flow is the only thing that creates
// song rows.
func Run(ctx context.Context, db *gorm.DB, src Sources) error {
	songs, err := database.GetAllSongs(db)
	if err != nil {
		return err
	}

	songMap := make(map[string]*models.Song, len(songs))
	active, inactive := 0, 0
	for i := range songs {
		song := &songs[i]
		songMap[song.Category+"\x00"+song.Name] = song
		if song.Active {
			active++
		} else {
			inactive++
		}
	}
	zap.S().Infof("read from database: %d active, %d inactive songs", active, inactive)

	var official []officialSong
	var overseas []overseasRow
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fetchOfficialJSON(ctx, src.OfficialJSONURL, &official)
	})
	g.Go(func() error {
		return fetchOverseasCSV(ctx, src.OverseasCSVURL, &overseas)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	changed := make(map[string]*models.Song)

	count := 0
	for _, js := range official {
		category := categoryFromJSON[js.Category]
		name := js.Title
		if fixed, ok := officialNames[name]; ok {
			name = fixed
		}
		if category == "" || name == "" {
			continue
		}
		song, ok := songMap[category+"\x00"+name]
		if !ok {
			zap.S().Warnf("cannot find %q %q in catalog", category, name)
			continue
		}
		song.Levels = models.StringArray{js.LevEas, js.LevBas, js.LevAdv, js.LevExp, js.LevMas}
		if js.LevRemas != " " {
			song.Levels = append(song.Levels, js.LevRemas)
		}
		version := 7.0 // assume current release when the JSON lists it
		song.Version = &version
		changed[song.Category+"\x00"+song.Name] = song
		count++
	}
	zap.S().Infof("%d songs imported from official JSON", count)

	count = 0
	japanOnly := 0
	for _, row := range overseas {
		if row.category == "" || row.name == "" {
			continue
		}
		song, ok := songMap[row.category+"\x00"+row.name]
		if !ok {
			zap.S().Warnf("cannot find %q %q in catalog, manual correction needed", row.category, row.name)
			continue
		}
		englishName := row.englishName
		song.EnglishName = &englishName
		song.JapanOnly = strings.TrimSpace(row.japanOnly) == "Y"
		if v, err := strconv.ParseFloat(row.version, 64); err == nil {
			song.Version = &v
		} else {
			song.Version = nil
		}
		song.Active = strings.TrimSpace(row.inactive) != "Y"
		if song.JapanOnly {
			japanOnly++
		}
		changed[song.Category+"\x00"+song.Name] = song
		count++
	}
	zap.S().Infof("%d songs (%d marked Japan only) imported from overseas CSV", count, japanOnly)

	zap.S().Info("writing into database...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, song := range changed {
			if err := database.UpdateSong(tx, song); err != nil {
				return err
			}
		}
		return nil
	})
}

func fetchOfficialJSON(ctx context.Context, url string, out *[]officialSong) error {
	body, err := fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(out)
}

func fetchOverseasCSV(ctx context.Context, url string, out *[]overseasRow) error {
	body, err := fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	for _, record := range records[1:] {
		*out = append(*out, overseasRow{
			category:    field(record, "category"),
			name:        field(record, "name"),
			englishName: field(record, "english_name"),
			japanOnly:   field(record, "japan_only"),
			version:     field(record, "version"),
			inactive:    field(record, "inactive"),
		})
	}
	return nil
}

func fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
