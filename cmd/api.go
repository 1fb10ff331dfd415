package cmd

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"golang-options/internal/delivery/http"
	"golang-options/pkg/logger"
	"golang-options/pkg/middleware"

	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	appDep  *AppDependency
	handler *http.HttpAPIHandler
}

func NewHTTPServer(appDep *AppDependency, handler *http.HttpAPIHandler) *HTTPServer {
	return &HTTPServer{
		appDep:  appDep,
		handler: handler,
	}
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *HTTPServer) Start() error {
	e := s.appDep.echo
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.NewRequestContextMiddleware(s.appDep.log))
	e.Use(middleware.NewRateLimiterMiddleware(s.appDep.cfg.API))
	s.handler.SetupRoutes()

	s.appDep.log.Info("Starting HTTP server", logger.IntField("port", s.appDep.cfg.API.Port))
	err := e.Start(fmt.Sprintf(":%d", s.appDep.cfg.API.Port))
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop drains in-flight requests. The caller's context is usually already
// cancelled, so the drain gets its own deadline.
func (s *HTTPServer) Stop() error {
	s.appDep.log.Info("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.appDep.echo.Shutdown(ctx); err != nil {
		s.appDep.log.Error("Error when stopping HTTP server", logger.ErrorField(err))
		return err
	}
	s.appDep.log.Info("HTTP server stopped")
	return nil
}
