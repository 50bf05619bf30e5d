package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/tracker"
	"github.com/otoscore/otoscore/internal/util"
)

// getTimeline lists every boundary instant of the player's history,
// ascending. Each one can be fed back into the as-of endpoint.
func (h *Handler) getTimeline(c *gin.Context) {
	player, err := h.visiblePlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	boundaries, err := tracker.Boundaries(h.db, player.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, boundaries, "ok")
}

func (h *Handler) getTimelineAt(c *gin.Context) {
	player, err := h.visiblePlayer(c)
	if err != nil {
		util.Fail(c, err)
		return
	}

	t, err := time.Parse(time.RFC3339, c.Param("time"))
	if err != nil {
		util.Fail(c, tracker.Validationf("time must be ISO-8601: %v", err))
		return
	}

	slice, err := tracker.StateAt(h.db, player.ID, t)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, slice, "ok")
}
