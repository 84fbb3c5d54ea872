package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/psds-microservice/apihub-support/api"
	"github.com/psds-microservice/apihub-support/internal/handler"
)

const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
	PathSwagger = "/swagger"
)

type Handlers struct {
	Tickets   *handler.TicketHandler
	Chat      *handler.ChatHandler
	Dashboard *handler.DashboardHandler
	DB        handler.Pinger
}

func New(h Handlers) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	r.GET(PathHealth, handler.Health)
	r.GET(PathReady, handler.Ready(h.DB))
	r.GET(PathMetrics, gin.WrapH(promhttp.Handler()))
	r.GET(PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, PathSwagger+"/") })
	r.GET(PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = PathSwagger + "/index.html"
			c.Request.RequestURI = PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(PathSwagger+"/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	{
		chat := v1.Group("/chat/sessions")
		chat.POST("", h.Chat.CreateSession)
		chat.GET("/:id", h.Chat.GetSession)
		chat.DELETE("/:id", h.Chat.ResetSession)
		chat.POST("/:id/messages", h.Chat.SendMessage)
		chat.POST("/:id/tickets", h.Chat.SubmitTicket)

		v1.POST("/tickets", h.Tickets.Create)
		v1.GET("/tickets", h.Tickets.List)
		v1.GET("/tickets/recent", h.Tickets.Recent)
		v1.GET("/tickets/:id", h.Tickets.Get)
		v1.POST("/tickets/:id/close", h.Tickets.Close)

		v1.POST("/usage-logs", h.Dashboard.RecordUsage)

		dash := v1.Group("/dashboard")
		dash.GET("/apis", h.Dashboard.Catalog)
		dash.GET("/overview", h.Dashboard.Overview)
		dash.GET("/apis/:api/usage", h.Dashboard.Usage)
		dash.GET("/apis/:api/quota", h.Dashboard.Quota)
		dash.GET("/apis/:api/rate-limit", h.Dashboard.RateLimit)
		dash.GET("/apis/:api/progress", h.Dashboard.Progress)
	}

	return r
}
