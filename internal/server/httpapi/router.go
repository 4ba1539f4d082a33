// Package httpapi is the HTTP face of the session service: gin routes,
// the access-token guard, cookie handling and error mapping.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Handler     *Handler
	Codec       *auth.Codec
	Logger      logging.Logger
	Metrics     http.Handler
	CORSOrigins []string
}

func SetupRoutes(cfg RouterConfig) *gin.Engine {
	g := gin.New()

	g.Use(RequestID(), Recovery(cfg.Logger), RequestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		g.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Accept", "Content-Type", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := cfg.Handler

	// public routes
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.GET("/health", h.Health)
	if cfg.Metrics != nil {
		g.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	// protected routes
	protected := g.Group("")
	protected.Use(Guard(cfg.Codec))
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/profile", h.Profile)
		protected.GET("/users/:id", RequireRole(common.RoleAdmin), h.UserByID)
	}

	g.POST("/refresh-token", GuardAllowExpired(cfg.Codec), h.RefreshToken)

	return g
}
