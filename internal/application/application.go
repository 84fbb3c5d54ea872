package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/psds-microservice/apihub-support/internal/chat"
	"github.com/psds-microservice/apihub-support/internal/config"
	"github.com/psds-microservice/apihub-support/internal/dashboard"
	"github.com/psds-microservice/apihub-support/internal/database"
	"github.com/psds-microservice/apihub-support/internal/handler"
	"github.com/psds-microservice/apihub-support/internal/kafka"
	"github.com/psds-microservice/apihub-support/internal/llm"
	"github.com/psds-microservice/apihub-support/internal/notifier"
	"github.com/psds-microservice/apihub-support/internal/router"
	"github.com/psds-microservice/apihub-support/internal/service"
	"github.com/psds-microservice/apihub-support/internal/store"
)

// Operator is the database-backed part of the service, shared by the API
// and the operator commands.
type Operator struct {
	DB      *gorm.DB
	Tickets *service.TicketService
	Store   *store.GormTicketStore
	Events  *kafka.Producer
}

// NewOperator migrates and opens the database. n may be nil when no
// notifications should be sent, as in the terminal commands.
func NewOperator(cfg *config.Config, n service.Notifier) (*Operator, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	ticketStore := store.NewTicketStore(db)
	events := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	return &Operator{
		DB:      db,
		Tickets: service.NewTicketService(ticketStore, n, events),
		Store:   ticketStore,
		Events:  events,
	}, nil
}

func (o *Operator) Close() error {
	var errList []error
	if err := o.Events.Close(); err != nil {
		errList = append(errList, fmt.Errorf("kafka: %w", err))
	}
	if sqlDB, err := o.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errList...)
}

// API is the HTTP service (api mode).
type API struct {
	cfg     *config.Config
	op      *Operator
	httpSrv *http.Server
}

func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	wa := notifier.New(notifier.Config{
		AccountSID:   cfg.Twilio.AccountSID,
		AuthToken:    cfg.Twilio.AuthToken,
		FromNumber:   cfg.Twilio.FromNumber,
		SupportPhone: cfg.Twilio.SupportPhone,
		BaseURL:      cfg.Twilio.BaseURL,
	})
	if !cfg.MessagingConfigured() {
		log.Warn().Msg("Twilio credentials not fully configured: WhatsApp notifications for support tickets are disabled")
	}

	op, err := NewOperator(cfg, wa)
	if err != nil {
		return nil, err
	}
	if !op.Events.Enabled() {
		log.Info().Msg("kafka: KAFKA_BROKERS not set, ticket events are not published")
	}

	client, err := llm.New(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		_ = op.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}

	catalog, err := dashboard.LoadCatalog(cfg.APICatalogFile)
	if err != nil {
		_ = op.Close()
		return nil, err
	}
	agg := dashboard.NewAggregator(store.NewUsageStore(op.DB), catalog, cfg.DashboardCacheTTL)

	sessions, err := chat.NewSessionStore(cfg.SessionCacheSize)
	if err != nil {
		_ = op.Close()
		return nil, fmt.Errorf("session store: %w", err)
	}
	turns := chat.NewHandler(op.Tickets, client, agg, cfg.ChatHistoryWindow)

	sqlDB, err := op.DB.DB()
	if err != nil {
		_ = op.Close()
		return nil, fmt.Errorf("database: %w", err)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := router.New(router.Handlers{
		Tickets:   handler.NewTicketHandler(op.Tickets),
		Chat:      handler.NewChatHandler(sessions, turns),
		Dashboard: handler.NewDashboardHandler(agg),
		DB:        sqlDB,
	})

	// The write timeout leaves room for a full model call.
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, op: op, httpSrv: httpSrv}, nil
}

// Run serves HTTP and blocks until ctx is cancelled.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Info().Str("addr", a.httpSrv.Addr).Msg("HTTP server listening")
	log.Info().Msgf("  Swagger UI:    %s/swagger", base)
	log.Info().Msgf("  Health:        %s/health", base)
	log.Info().Msgf("  Metrics:       %s/metrics", base)
	log.Info().Msgf("  API v1:        %s/api/v1/", base)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.op.Close()
		return fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return a.op.Close()
}
