package api

import (
	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/util"
)

func (h *Handler) getSongs(c *gin.Context) {
	songs, err := database.GetAllSongs(h.db)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, songs, "ok")
}
