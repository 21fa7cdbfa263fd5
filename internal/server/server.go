package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/minnesingerthule/VRIL-Storage/internal/auth"
	"github.com/minnesingerthule/VRIL-Storage/internal/config"
	"github.com/minnesingerthule/VRIL-Storage/internal/drive"
	"github.com/minnesingerthule/VRIL-Storage/internal/handlers"
	"github.com/minnesingerthule/VRIL-Storage/internal/logging"
	"github.com/minnesingerthule/VRIL-Storage/internal/storage"
	"gorm.io/gorm"
)

// Server wires the services behind the HTTP surface.
type Server struct {
	cfg  *config.Config
	echo *echo.Echo
	log  logging.Logger
}

func New(cfg *config.Config, db *gorm.DB, blobs storage.Provider, log logging.Logger) (*Server, error) {
	ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		ttl = 24 * time.Hour
	}

	tokens := auth.NewTokenManager(cfg.Auth.Secret, ttl)
	driveSvc := drive.NewService(db, blobs, log.Named("drive"), cfg.Storage.QuotaBytes)
	authSvc := auth.NewService(db, tokens, driveSvc)
	h := handlers.NewHandler(authSvc, driveSvc, log.Named("http"))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.POST("/auth/register", h.RegisterHandler)
	e.POST("/auth/login", h.LoginHandler)

	authed := e.Group("", auth.Middleware(authSvc))
	authed.GET("/auth/me", h.MeHandler)

	authed.GET("/drive/state", h.StateHandler)
	authed.POST("/drive/folders", h.CreateFolderHandler)
	authed.PATCH("/drive/folders/:id", h.UpdateFolderHandler)
	authed.DELETE("/drive/folders/:id", h.DeleteFolderHandler)
	authed.POST("/drive/files/upload", h.UploadHandler)
	authed.PATCH("/drive/files/:id", h.UpdateFileHandler)
	authed.DELETE("/drive/files/:id", h.DeleteFileHandler)
	authed.GET("/drive/files/:id/download", h.DownloadHandler)
	authed.GET("/drive/shared", h.SharedHandler)
	authed.GET("/drive/quota", h.QuotaHandler)

	return &Server{cfg: cfg, echo: e, log: log.Named("server")}, nil
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.cfg.Server.Addr)
		if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout, err := time.ParseDuration(s.cfg.ShutdownTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down")
	return s.echo.Shutdown(shutdown)
}
