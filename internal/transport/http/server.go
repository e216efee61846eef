package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pyrechat/pyre-server/internal/auth"
	"github.com/pyrechat/pyre-server/internal/config"
	"github.com/pyrechat/pyre-server/internal/core"
)

// NewServer builds the HTTP server. The chat WebSocket at /<channel> is
// served straight from the mux because gin's writer refuses to hijack a
// connection once the upgrade status is written; everything else goes
// through the gin router.
func NewServer(sessions *core.SessionHandler, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/"+sessions.Channel(), NewWSHandler(sessions, cfg, logger))
	mux.Handle("/", newRouter(authService, cfg, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newRouter(authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, logger)
	router.POST("/register", api.Register)
	router.POST("/token", api.Token)
	router.GET("/users/me", AuthMiddleware(authService, logger), api.Me)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
