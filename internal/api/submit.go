package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/tracker"
	"github.com/otoscore/otoscore/internal/util"
	"go.uber.org/zap"
)

// submitScores runs the reconciliation flow for one full upload from the
// capture script: profile first, then each score, then retirement of
// charts missing from the submission. All of it commits atomically or not
// at all.
func (h *Handler) submitScores(c *gin.Context) {
	player, err := h.ownedPlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	var sub tracker.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		util.Fail(c, tracker.Validationf("%v", err))
		return
	}

	if err := tracker.ApplySubmission(h.db, player, &sub, time.Now()); err != nil {
		util.Fail(c, err)
		return
	}

	zap.S().Infof("submission for %q applied: %d score items", player.Nickname, len(sub.Scores))
	util.Success(c, gin.H{}, "Submission applied")
}
