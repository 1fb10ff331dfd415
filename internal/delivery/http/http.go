package http

import (
	"context"
	"time"

	"golang-options/internal/service"
	"golang-options/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
	loc       *time.Location
}

// NewHttpAPIHandler builds the REST handler. loc is the market timezone date-only
// request fields are parsed in.
func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service, log *logger.Logger, loc *time.Location) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		log:       log,
		loc:       loc,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupPositions(base)
	h.SetupBatches(base)
}
