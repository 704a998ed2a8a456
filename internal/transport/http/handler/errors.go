package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"copium-tutor/internal/app"
	"copium-tutor/internal/transport/http/middleware"
	"copium-tutor/internal/transport/http/response"
)

// writeError maps a service error to a status and code by its kind. Internal
// errors are logged and replaced by fallback.
func writeError(c *gin.Context, err error, fallback string) {
	switch app.ErrorKind(err) {
	case app.KindValidation:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case app.KindNotFound:
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case app.KindNotIndexed:
		response.Error(c, http.StatusConflict, response.CodeNotIndexed, err.Error())
	case app.KindConflict:
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case app.KindTimeout:
		response.Error(c, http.StatusGatewayTimeout, response.CodeUpstreamTimeout, err.Error())
	case app.KindUpstream, app.KindParse:
		if errors.Is(err, app.ErrServiceNotConfigured) {
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceNotConfigured, err.Error())
			return
		}
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, fallback)
	default:
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return "", false
	}
	return userID, true
}
