package http

import (
	"fmt"
	"net/http"

	"golang-options/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBatches(base *echo.Group) {
	v1 := base.Group("/v1/batches")
	{
		v1.POST("", h.applyBatch)
	}
}

func (h *HttpAPIHandler) applyBatch(c echo.Context) error {
	req := new(dto.BatchRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	commands := make([]dto.BatchCommand, 0, len(req.Items))
	for i, item := range req.Items {
		cmd, err := item.ToCommand(h.loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(fmt.Sprintf("item %d: %s", i, err)))
		}
		commands = append(commands, cmd)
	}

	outcomes, err := h.service.BatchService.Apply(c.Request().Context(), commands)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Batch applied", outcomes))
}
