package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/psds-microservice/apihub-support/internal/errs"
)

func TestRespondErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{errs.ErrTicketNotFound, http.StatusNotFound},
		{fmt.Errorf("get: %w", errs.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %q", errs.ErrUnknownAPI, "x"), http.StatusNotFound},
		{errs.ErrInvalidTicket, http.StatusBadRequest},
		{errs.ErrQuotaNotConfigured, http.StatusUnprocessableEntity},
		{errs.ErrRateLimitNotDefined, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestReadyReportsPingFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ready", Ready(failingPinger{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("db down") }
