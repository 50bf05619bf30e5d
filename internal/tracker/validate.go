package tracker

import (
	"math"
	"regexp"
	"strings"
)

// Validation limits of the game variant. The level list and flag tokens
// come from what the capture script can actually observe on the official
// site.
var validLevels = []string{
	"1", "2", "3", "4", "5", "6",
	"7", "7+", "8", "8+", "9", "9+",
	"10", "10+", "11", "11+", "12", "12+",
	"13", "13+", "14",
}

var validFlags = map[string]bool{
	"fc": true, "fcp": true, "ap": true, "app": true,
	"fs": true, "fsp": true, "fsd": true, "fsdp": true,
}

const (
	minDifficulty = 0
	maxDifficulty = 5
	maxScore      = 101
	maxRating     = 100000
)

// Internal song ids are 172 characters: 128 hex followed by 44 of base64.
var songIDPattern = regexp.MustCompile(`^[0-9a-z]{128}[0-9A-Za-z+/]{43}=$`)

var nicknamePattern = regexp.MustCompile(`^[0-9a-z_-]+$`)

// ValidNickname reports whether nickname can name a player. "me" is
// reserved for the caller's own player listing route.
func ValidNickname(nickname string) bool {
	return nickname != "me" && nicknamePattern.MatchString(nickname)
}

// Submission is a full profile + score upload. Field names follow the
// capture script's payload, which this endpoint is wire-compatible with.
type Submission struct {
	CardName  string      `json:"cardName"`
	Rating    int         `json:"rating"`
	MaxRating int         `json:"maxRating"`
	Title     string      `json:"title"`
	Class     string      `json:"class"`
	Scores    []ScoreItem `json:"scores"`
}

type ScoreItem struct {
	InternalSongID string  `json:"internalSongId"`
	Category       string  `json:"category"`
	SongName       string  `json:"songName"`
	Deluxe         bool    `json:"deluxe"`
	Difficulty     int     `json:"difficulty"`
	Level          string  `json:"level"`
	Score          float64 `json:"score"`
	RawScore       int     `json:"rawScore"`
	Flag           string  `json:"flag"`
}

// Validate checks the submission's shape. The non-decreasing score rule
// needs stored state and is enforced during reconciliation instead.
func (s *Submission) Validate() error {
	if s.Rating < 0 || s.Rating > maxRating {
		return Validationf("rating %d out of range", s.Rating)
	}
	if s.MaxRating < 0 || s.MaxRating > maxRating {
		return Validationf("max rating %d out of range", s.MaxRating)
	}
	for i := range s.Scores {
		if err := s.Scores[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (item *ScoreItem) validate() error {
	if !songIDPattern.MatchString(item.InternalSongID) {
		return Validationf("malformed song id for %q", item.SongName)
	}
	if item.Category == "" || item.SongName == "" {
		return Validationf("score item missing category or song name")
	}
	if item.Difficulty < minDifficulty || item.Difficulty > maxDifficulty {
		return Validationf("difficulty %d out of range", item.Difficulty)
	}
	if !validLevel(item.Level) {
		return Validationf("unknown level %q", item.Level)
	}
	if math.IsNaN(item.Score) || math.IsInf(item.Score, 0) ||
		item.Score < 0 || item.Score > maxScore {
		return Validationf("score %v out of range for %q", item.Score, item.SongName)
	}
	if item.Flag != "" {
		for _, token := range strings.Split(item.Flag, "|") {
			if !validFlags[token] {
				return Validationf("unknown flag token %q", token)
			}
		}
	}
	return nil
}

func validLevel(level string) bool {
	for _, l := range validLevels {
		if l == level {
			return true
		}
	}
	return false
}
