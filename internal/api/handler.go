package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/config"
	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/otoscore/otoscore/internal/tracker"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the API handlers.
type Handler struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewHandler(cfg *config.Config, db *gorm.DB) *Handler {
	return &Handler{cfg: cfg, db: db}
}

// ownedPlayer resolves :nickname to a player owned by the caller. Misses
// and foreign players both come back as not_found so write paths never
// reveal whether a nickname is taken by someone else.
func (h *Handler) ownedPlayer(c *gin.Context) (*models.Player, error) {
	nickname := c.Param("nickname")
	if !tracker.ValidNickname(nickname) {
		return nil, tracker.Validationf("invalid nickname %q", nickname)
	}
	player, err := database.GetPlayerForOwner(h.db, nickname, c.GetString("userID"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tracker.E(tracker.KindNotFound, "player not found")
	}
	if err != nil {
		return nil, err
	}
	return player, nil
}

// visiblePlayer resolves :nickname for read paths, applying the privacy
// gate: private players exist only for their owner. Hiding behind
// not_found (rather than forbidden) keeps a private nickname
// indistinguishable from an unused one.
func (h *Handler) visiblePlayer(c *gin.Context) (*models.Player, error) {
	nickname := c.Param("nickname")
	player, err := database.GetPlayerByNickname(h.db, nickname)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, tracker.E(tracker.KindNotFound, "player not found")
	}
	if err != nil {
		return nil, err
	}
	if player.Privacy == models.PrivacyPrivate && player.UserID != c.GetString("userID") {
		return nil, tracker.E(tracker.KindNotFound, "player not found")
	}
	return player, nil
}
