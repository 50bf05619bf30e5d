package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/otoscore/otoscore/internal/tracker"
	"github.com/otoscore/otoscore/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) getMyPlayers(c *gin.Context) {
	players, err := database.GetPlayersByUserID(h.db, c.GetString("userID"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, players, "ok")
}

func (h *Handler) createPlayer(c *gin.Context) {
	var req struct {
		Nickname string         `json:"nickname" binding:"required"`
		Privacy  models.Privacy `json:"privacy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, tracker.Validationf("%v", err))
		return
	}
	if !tracker.ValidNickname(req.Nickname) {
		util.Fail(c, tracker.Validationf("invalid nickname %q", req.Nickname))
		return
	}
	if !req.Privacy.Valid() {
		util.Fail(c, tracker.Validationf("invalid privacy %q", req.Privacy))
		return
	}

	_, err := database.GetPlayerByNickname(h.db, req.Nickname)
	if err == nil {
		util.Fail(c, tracker.E(tracker.KindExists, "nickname already taken"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.Fail(c, err)
		return
	}

	player := models.Player{
		ID:       uuid.NewString(),
		Nickname: req.Nickname,
		Privacy:  req.Privacy,
		UserID:   c.GetString("userID"),
	}
	if err := database.CreatePlayer(h.db, &player); err != nil {
		util.Fail(c, err)
		return
	}
	zap.S().Infof("player %q created", player.Nickname)
	util.Success(c, player, "Player created")
}

// getPlayer returns the player's current profile and score set, honoring
// the privacy gate.
func (h *Handler) getPlayer(c *gin.Context) {
	player, err := h.visiblePlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	state, err := tracker.State(h.db, player.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{
		"nickname": player.Nickname,
		"privacy":  player.Privacy,
		"record":   state.Record,
		"scores":   state.Scores,
	}, "ok")
}

func (h *Handler) updatePlayer(c *gin.Context) {
	player, err := h.ownedPlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	var req struct {
		Nickname string         `json:"nickname" binding:"required"`
		Privacy  models.Privacy `json:"privacy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, tracker.Validationf("%v", err))
		return
	}
	if !req.Privacy.Valid() {
		util.Fail(c, tracker.Validationf("invalid privacy %q", req.Privacy))
		return
	}

	if req.Nickname != player.Nickname {
		if !tracker.ValidNickname(req.Nickname) {
			util.Fail(c, tracker.Validationf("invalid nickname %q", req.Nickname))
			return
		}
		_, err := database.GetPlayerByNickname(h.db, req.Nickname)
		if err == nil {
			util.Fail(c, tracker.E(tracker.KindExists, "nickname already taken"))
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			util.Fail(c, err)
			return
		}
		player.Nickname = req.Nickname
	}
	player.Privacy = req.Privacy

	if err := database.UpdatePlayer(h.db, player); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, player, "Player updated")
}

// deletePlayer cascades over every profile and score row, recent and
// history. The caller has to echo the nickname to confirm.
func (h *Handler) deletePlayer(c *gin.Context) {
	player, err := h.ownedPlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	var req struct {
		ConfirmNickname string `json:"confirm_nickname" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Fail(c, tracker.Validationf("%v", err))
		return
	}
	if req.ConfirmNickname != player.Nickname {
		util.Fail(c, tracker.Validationf("confirmation nickname does not match"))
		return
	}

	if err := database.DeletePlayerCascade(h.db, player.ID); err != nil {
		util.Fail(c, err)
		return
	}
	zap.S().Infof("player %q deleted", player.Nickname)
	util.Success(c, gin.H{}, "Player deleted")
}
