package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otoscore/otoscore/internal/auth"
	"github.com/otoscore/otoscore/internal/database"
	"github.com/otoscore/otoscore/internal/database/models"
	"github.com/otoscore/otoscore/internal/tracker"
	"github.com/otoscore/otoscore/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) getAuthStatus(c *gin.Context) {
	util.Success(c, gin.H{
		"local_auth_enabled": h.cfg.Auth.Local.Enabled,
		"oidc_enabled":       h.cfg.Auth.OIDC.Enabled,
	}, "Auth status retrieved")
}

func (h *Handler) localRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusUnprocessableEntity, tracker.KindValidation, err.Error())
		return
	}

	_, err := database.GetUserByUsername(h.db, req.Username)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		if err == nil {
			util.Error(c, http.StatusConflict, tracker.KindExists, "username already exists")
		} else {
			util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "database error")
		}
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "failed to hash password")
		return
	}

	newUser := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hashedPassword,
	}
	if err := database.CreateUser(h.db, &newUser); err != nil {
		// Lost a race on the unique username with a concurrent register.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, tracker.KindExists, "username already exists")
			return
		}
		util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "failed to create user")
		return
	}

	zap.S().Infof("new local user registered: %s", newUser.Username)
	util.Success(c, gin.H{"id": newUser.ID, "username": newUser.Username}, "User registered successfully")
}

func (h *Handler) localLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusUnprocessableEntity, tracker.KindValidation, err.Error())
		return
	}

	user, err := database.GetUserByUsername(h.db, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, tracker.KindUnauthenticated, "invalid username or password")
		} else {
			util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "database error")
		}
		return
	}

	if user.PasswordHash == "" {
		util.Error(c, http.StatusUnauthorized, tracker.KindUnauthenticated, "user registered via OIDC, please use OIDC login")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		util.Error(c, http.StatusUnauthorized, tracker.KindUnauthenticated, "invalid username or password")
		return
	}

	if err := database.TouchUserLogin(h.db, user.ID, time.Now().UTC()); err != nil {
		util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "database error")
		return
	}

	jwtToken, err := auth.GenerateJWT(user.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, tracker.KindInternal, "failed to generate JWT")
		return
	}
	util.Success(c, gin.H{"token": jwtToken}, "Login successful")
}
