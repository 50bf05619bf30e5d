package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/otoscore/otoscore/internal/temporal"
)

type Privacy string

const (
	PrivacyPublic    Privacy = "public"
	PrivacyAnonymous Privacy = "anonymous"
	PrivacyPrivate   Privacy = "private"
)

func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyAnonymous, PrivacyPrivate:
		return true
	}
	return false
}

// StringArray is a helper type for storing a string slice as JSON text.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return errors.New("type assertion to []byte failed")
}

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string    `gorm:"uniqueIndex" json:"username"`
	PasswordHash string    `json:"-"`
	OIDCSubject  *string   `gorm:"uniqueIndex" json:"-"`
	LoggedInAt   time.Time `json:"logged_in_at"`
}

type Player struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Nickname string  `gorm:"uniqueIndex" json:"nickname"`
	Privacy  Privacy `json:"privacy"`
	UserID   string  `gorm:"index" json:"-"`
}

// ProfileFields is the payload of a profile snapshot; the temporal store
// archives a row whenever any of these change.
type ProfileFields struct {
	CardName  string `json:"card_name"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"max_rating"`
	Title     string `json:"title"`
	Class     string `json:"class"`
}

type ProfileRecent struct {
	temporal.Columns
	PlayerID string `gorm:"uniqueIndex" json:"-"`
	ProfileFields
}

func (ProfileRecent) TableName() string { return "profile_recent" }

func (p *ProfileRecent) Key() map[string]any {
	return map[string]any{"player_id": p.PlayerID}
}

func (p *ProfileRecent) EqualTo(other *ProfileRecent) bool {
	return p.ProfileFields == other.ProfileFields
}

// ProfileHistory shares the row shape of ProfileRecent without the unique
// per-player constraint.
type ProfileHistory struct {
	temporal.Columns
	PlayerID string `gorm:"index" json:"-"`
	ProfileFields
}

func (ProfileHistory) TableName() string { return "profile_history" }

// ScoreFields is the payload of a per-chart score snapshot.
type ScoreFields struct {
	Score    float64 `json:"score"`
	RawScore int     `json:"raw_score"`
	Flag     string  `json:"flag"`
}

type ScoreRecent struct {
	temporal.Columns
	PlayerID   string `gorm:"index:idx_score_key,unique" json:"-"`
	SongID     uint   `gorm:"index:idx_score_key,unique" json:"song_id"`
	Difficulty int    `gorm:"index:idx_score_key,unique" json:"difficulty"`
	ScoreFields
}

func (ScoreRecent) TableName() string { return "score_recent" }

func (s *ScoreRecent) Key() map[string]any {
	return map[string]any{
		"player_id":  s.PlayerID,
		"song_id":    s.SongID,
		"difficulty": s.Difficulty,
	}
}

func (s *ScoreRecent) EqualTo(other *ScoreRecent) bool {
	return s.ScoreFields == other.ScoreFields
}

type ScoreHistory struct {
	temporal.Columns
	PlayerID   string `gorm:"index" json:"-"`
	SongID     uint   `gorm:"index" json:"song_id"`
	Difficulty int    `json:"difficulty"`
	ScoreFields
}

func (ScoreHistory) TableName() string { return "score_history" }

// Song is a catalog entry maintained by the out-of-band importer and, for
// sequence/name/active, implicitly by score submissions carrying
// difficulty 0.
type Song struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Seq         int         `gorm:"index" json:"seq"`
	Deluxe      bool        `gorm:"uniqueIndex:idx_song_identity" json:"deluxe"`
	Category    string      `gorm:"uniqueIndex:idx_song_identity" json:"category"`
	Name        string      `gorm:"uniqueIndex:idx_song_identity" json:"name"`
	Levels      StringArray `gorm:"type:text" json:"levels"`
	Active      bool        `json:"active"`
	Version     *float64    `json:"version"`
	EnglishName *string     `json:"english_name"`
	JapanOnly   bool        `json:"japan_only"`
}
