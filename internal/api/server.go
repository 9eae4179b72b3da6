package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"mailflare/internal/config"
	"mailflare/internal/handlers"
	"mailflare/internal/routes"
)

// Server is the HTTP front: tracker callbacks plus the send API.
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *zap.Logger
}

func NewServer(cfg *config.Config, trackingHandler *handlers.TrackingHandler, campaignHandler *handlers.CampaignHandler, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	routes.RegisterTrackingRoutes(e, trackingHandler)
	routes.RegisterCampaignRoutes(e, campaignHandler)

	return &Server{echo: e, config: cfg, logger: logger}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("starting api server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
