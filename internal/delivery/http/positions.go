package http

import (
	"net/http"
	"strconv"

	"golang-options/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPositions(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.POST("/entries", h.applyEntry)
		v1.POST("/positions/:id/exits", h.applyExit)
		v1.GET("/positions/:id", h.getSummary)
		v1.GET("/positions/:id/operations", h.getOperations)
		v1.GET("/positions/:id/group", h.getGroup)
		v1.GET("/positions/:id/verify", h.verify)
	}
}

func positionID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid position id")
	}
	return uint(id), nil
}

func (h *HttpAPIHandler) applyEntry(c echo.Context) error {
	req := new(dto.EntryRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	cmd, err := req.ToCommand(h.loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.EntryService.ApplyEntry(c.Request().Context(), cmd)
	if err != nil {
		return h.errorResponse(c, err)
	}
	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	return c.JSON(code, dto.NewBaseResponse(code, "Entry applied", result))
}

func (h *HttpAPIHandler) applyExit(c echo.Context) error {
	id, err := positionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid position id"))
	}
	req := new(dto.ExitRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	cmd, err := req.ToCommand(id, h.loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.ExitOrchestrator.ApplyExit(c.Request().Context(), cmd)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Exit applied", result))
}

func (h *HttpAPIHandler) getSummary(c echo.Context) error {
	id, err := positionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid position id"))
	}
	summary, err := h.service.PositionQuery.Summary(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", summary))
}

func (h *HttpAPIHandler) getOperations(c echo.Context) error {
	id, err := positionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid position id"))
	}
	includeHidden, _ := strconv.ParseBool(c.QueryParam("include_hidden"))
	operations, err := h.service.PositionQuery.Operations(c.Request().Context(), id, includeHidden)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", operations))
}

func (h *HttpAPIHandler) getGroup(c echo.Context) error {
	id, err := positionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid position id"))
	}
	ledger, err := h.service.PositionQuery.Ledger(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", ledger))
}

func (h *HttpAPIHandler) verify(c echo.Context) error {
	id, err := positionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid position id"))
	}
	if err := h.service.PositionQuery.Verify(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Position is consistent", nil))
}
