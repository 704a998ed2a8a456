package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeUnauthorized         = 40100
	CodeNotFound             = 40400
	CodeConflict             = 40900
	CodeNotIndexed           = 40901
	CodeInternalServer       = 50000
	CodeUpstream             = 50200
	CodeServiceNotConfigured = 50300
	CodeUpstreamTimeout      = 50400
)

type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

// Accepted reports work that continues after the response, such as a queued
// generation job.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, APIResponse{
		Code:    CodeOK,
		Message: "accepted",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
