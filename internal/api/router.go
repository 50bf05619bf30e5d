package api

import (
	"github.com/gin-gonic/gin"
	"github.com/otoscore/otoscore/internal/auth"
	"github.com/otoscore/otoscore/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin engine.
func NewRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db)

	v1 := r.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/status", h.getAuthStatus)

			if cfg.Auth.OIDC.Enabled {
				oidcHandler, err := auth.NewOIDCHandler(cfg, db)
				if err != nil {
					zap.S().Fatalf("failed to initialize OIDC: %v", err)
				}
				oidcGroup := authGroup.Group("/oidc")
				oidcGroup.GET("/login", oidcHandler.Login)
				oidcGroup.GET("/callback", oidcHandler.Callback)
			}

			if cfg.Auth.Local.Enabled {
				localAuthGroup := authGroup.Group("/local")
				{
					localAuthGroup.POST("/register", h.localRegister)
					localAuthGroup.POST("/login", h.localLogin)
				}
			}
		}

		// Song catalog is world-readable.
		v1.GET("/songs", h.getSongs)

		players := v1.Group("/players")
		{
			optional := OptionalAuthMiddleware(cfg.Auth.JWT.Secret)
			players.GET("/:nickname", optional, h.getPlayer)
			players.GET("/:nickname/timeline", optional, h.getTimeline)
			players.GET("/:nickname/timeline/:time", optional, h.getTimelineAt)

			authed := players.Group("")
			authed.Use(AuthMiddleware(cfg.Auth.JWT.Secret))
			{
				authed.GET("/me", h.getMyPlayers)
				authed.POST("", h.createPlayer)
				authed.PATCH("/:nickname", h.updatePlayer)
				authed.DELETE("/:nickname", h.deletePlayer)
				authed.POST("/:nickname/submit", h.submitScores)
			}
		}
	}

	return r
}
