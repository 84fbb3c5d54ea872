package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/errs"
)

// respondError maps domain errors to status codes. Anything unknown is a 500
// with the wrapped message; the process keeps serving.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrTicketNotFound),
		errors.Is(err, errs.ErrSessionNotFound),
		errors.Is(err, errs.ErrUnknownAPI):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTicket):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrQuotaNotConfigured),
		errors.Is(err, errs.ErrRateLimitNotDefined):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("http: request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=; bad or non-positive values mean "no limit given".
func queryLimit(c *gin.Context) int {
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
