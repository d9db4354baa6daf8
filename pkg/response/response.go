package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Message   string `json:"message"`
	Data      T      `json:"data"`
	RequestID string `json:"requestId,omitempty"`
}

type PageResponse[T any] struct {
	Message    string `json:"message"`
	Data       []T    `json:"data"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
	RequestID  string `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse[T]{
		Message:   message,
		Data:      data,
		RequestID: ctx.GetString("request_id"),
	}
	ctx.JSON(status, resp)
	return resp
}

func Paginated[T any](ctx *gin.Context, data []T, message string, page, limit int, total int64, totalPages int) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	resp := PageResponse[T]{
		Message:    message,
		Data:       data,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		RequestID:  ctx.GetString("request_id"),
	}
	ctx.JSON(http.StatusOK, resp)
	return resp
}

// Error writes an error body. It does not abort the chain; middleware should
// call Abort itself.
func Error(ctx *gin.Context, status int, message string, errs []string) ErrorResponse {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := ErrorResponse{
		Message:   message,
		Errors:    errs,
		RequestID: ctx.GetString("request_id"),
	}
	ctx.JSON(status, resp)
	return resp
}

// NoContent answers with an empty body.
func NoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}
