package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidNickname(t *testing.T) {
	valid := []string{"alice", "a-b_c", "0xdeadbeef", "x"}
	for _, nickname := range valid {
		assert.True(t, ValidNickname(nickname), "nickname %q", nickname)
	}
	invalid := []string{"", "me", "Alice", "日本語", "with space", "semi;colon"}
	for _, nickname := range invalid {
		assert.False(t, ValidNickname(nickname), "nickname %q", nickname)
	}
}

func TestSubmissionValidate(t *testing.T) {
	base := func() ScoreItem {
		return scoreItem(7, "Song Seven", 0, 98.5)
	}

	cases := []struct {
		name   string
		mutate func(*ScoreItem)
		ok     bool
	}{
		{"valid item", func(*ScoreItem) {}, true},
		{"empty flag ok", func(i *ScoreItem) { i.Flag = "" }, true},
		{"multi flag ok", func(i *ScoreItem) { i.Flag = "ap|fsd" }, true},
		{"short song id", func(i *ScoreItem) { i.InternalSongID = "abc" }, false},
		{"uppercase hex in song id", func(i *ScoreItem) {
			i.InternalSongID = "F" + i.InternalSongID[1:]
		}, false},
		{"missing category", func(i *ScoreItem) { i.Category = "" }, false},
		{"missing name", func(i *ScoreItem) { i.SongName = "" }, false},
		{"negative difficulty", func(i *ScoreItem) { i.Difficulty = -1 }, false},
		{"difficulty too high", func(i *ScoreItem) { i.Difficulty = 6 }, false},
		{"unknown level", func(i *ScoreItem) { i.Level = "15" }, false},
		{"level with stray plus", func(i *ScoreItem) { i.Level = "14+" }, false},
		{"score above cap", func(i *ScoreItem) { i.Score = 101.5 }, false},
		{"negative score", func(i *ScoreItem) { i.Score = -1 }, false},
		{"unknown flag token", func(i *ScoreItem) { i.Flag = "fc|wat" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := base()
			tc.mutate(&item)
			sub := submission(5000, item)
			err := sub.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, KindValidation, KindOf(err))
			}
		})
	}
}

func TestSubmissionValidateProfileRanges(t *testing.T) {
	sub := submission(5000)
	sub.Rating = -1
	assert.Error(t, sub.Validate())

	sub = submission(5000)
	sub.MaxRating = 1000000
	assert.Error(t, sub.Validate())

	assert.NoError(t, submission(0).Validate())
}
