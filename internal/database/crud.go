package database

import (
	"time"

	"github.com/otoscore/otoscore/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByOIDCSubject(db *gorm.DB, subject string) (*models.User, error) {
	var user models.User
	if err := db.Where("oidc_subject = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func TouchUserLogin(db *gorm.DB, userID string, now time.Time) error {
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("logged_in_at", now).Error
}

// Player CRUD
func CreatePlayer(db *gorm.DB, player *models.Player) error {
	return db.Create(player).Error
}

func GetPlayerByNickname(db *gorm.DB, nickname string) (*models.Player, error) {
	var player models.Player
	if err := db.Where("nickname = ?", nickname).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// GetPlayerForOwner looks a player up by nickname and owner in one shot, so
// a non-owner cannot distinguish "wrong owner" from "no such player".
func GetPlayerForOwner(db *gorm.DB, nickname, userID string) (*models.Player, error) {
	var player models.Player
	if err := db.Where("nickname = ? AND user_id = ?", nickname, userID).
		First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func GetPlayersByUserID(db *gorm.DB, userID string) ([]models.Player, error) {
	var players []models.Player
	if err := db.Where("user_id = ?", userID).Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

func UpdatePlayer(db *gorm.DB, player *models.Player) error {
	return db.Save(player).Error
}

// DeletePlayerCascade removes the player and every dependent snapshot row,
// recent and history, in one transaction.
func DeletePlayerCascade(db *gorm.DB, playerID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&models.ScoreRecent{},
			&models.ScoreHistory{},
			&models.ProfileRecent{},
			&models.ProfileHistory{},
		} {
			if err := tx.Where("player_id = ?", playerID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Player{}, "id = ?", playerID).Error
	})
}

// Song catalog
func GetAllSongs(db *gorm.DB) ([]models.Song, error) {
	var songs []models.Song
	if err := db.Order("seq asc").Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func GetSongByIdentity(db *gorm.DB, category, name string, deluxe bool) (*models.Song, error) {
	var song models.Song
	if err := db.Where("category = ? AND name = ? AND deluxe = ?", category, name, deluxe).
		First(&song).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

// UpsertSongSeq inserts the song identity on first sight; an existing song
// only has its display sequence and active flag refreshed. Mirrors what a
// difficulty-0 score item carries.
func UpsertSongSeq(db *gorm.DB, song *models.Song) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "deluxe"}, {Name: "category"}, {Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"seq":    song.Seq,
			"active": song.Active,
		}),
	}).Create(song).Error
}

func UpdateSong(db *gorm.DB, song *models.Song) error {
	return db.Save(song).Error
}
