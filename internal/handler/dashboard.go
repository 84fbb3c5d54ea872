package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/apihub-support/internal/dashboard"
	"github.com/psds-microservice/apihub-support/internal/model"
)

type DashboardHandler struct {
	agg *dashboard.Aggregator
}

func NewDashboardHandler(agg *dashboard.Aggregator) *DashboardHandler {
	return &DashboardHandler{agg: agg}
}

func (h *DashboardHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apis": h.agg.Catalog()})
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	ov, err := h.agg.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *DashboardHandler) Usage(c *gin.Context) {
	u, err := h.agg.Usage(c.Request.Context(), c.Param("api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *DashboardHandler) Quota(c *gin.Context) {
	q, err := h.agg.Quota(c.Request.Context(), c.Param("api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *DashboardHandler) RateLimit(c *gin.Context) {
	rl, err := h.agg.RateLimit(c.Request.Context(), c.Param("api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rl)
}

func (h *DashboardHandler) Progress(c *gin.Context) {
	p, err := h.agg.Progress(c.Request.Context(), c.Param("api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RecordUsage stores one API call. Omitted fields get their defaults.
func (h *DashboardHandler) RecordUsage(c *gin.Context) {
	var l model.UsageLog
	if err := c.ShouldBindJSON(&l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	l.ID = 0
	if err := h.agg.Record(c.Request.Context(), &l); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}
