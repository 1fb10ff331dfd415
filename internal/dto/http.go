package dto

import "net/http"

type BaseResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorDetail is attached to rejections raised for a specific position.
type ErrorDetail struct {
	PositionID uint   `json:"position_id,omitempty"`
	LotID      uint   `json:"lot_id,omitempty"`
	Requested  int64  `json:"requested"`
	Available  int64  `json:"available"`
	Detail     string `json:"detail,omitempty"`
}

func NewBaseResponse(code int, message string, data interface{}) *BaseResponse {
	return &BaseResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewBadRequestResponse(message string) *BaseResponse {
	return NewBaseResponse(http.StatusBadRequest, message, nil)
}

func NewSuccessResponse(message string, data interface{}) *BaseResponse {
	return NewBaseResponse(http.StatusOK, message, data)
}

func NewErrorResponse(code int, message string, detail *ErrorDetail) *BaseResponse {
	if detail == nil {
		return NewBaseResponse(code, message, nil)
	}
	return NewBaseResponse(code, message, detail)
}
