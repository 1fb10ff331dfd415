package http

import (
	"errors"
	"net/http"

	"golang-options/internal/dto"
	"golang-options/internal/engine"
	"golang-options/internal/repository"
	"golang-options/internal/service"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"

	"github.com/labstack/echo/v4"
)

// statusFor maps a service error to the HTTP status returned to the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInsufficientQuantity),
		errors.Is(err, engine.ErrArithmeticPolicyViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidLotState),
		errors.Is(err, engine.ErrInconsistentGroupState):
		return http.StatusConflict
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownStrategy),
		errors.Is(err, service.ErrInvalidSeries):
		return http.StatusBadRequest
	case errors.Is(err, keylock.ErrLockHeld):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HttpAPIHandler) errorResponse(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed", logger.StringField("path", c.Path()), logger.ErrorField(err))
	}
	var detail *dto.ErrorDetail
	var posErr *engine.PositionError
	if errors.As(err, &posErr) {
		detail = &dto.ErrorDetail{
			PositionID: posErr.PositionID,
			LotID:      posErr.LotID,
			Requested:  posErr.Requested,
			Available:  posErr.Available,
			Detail:     posErr.Detail,
		}
	}
	return c.JSON(code, dto.NewErrorResponse(code, err.Error(), detail))
}
