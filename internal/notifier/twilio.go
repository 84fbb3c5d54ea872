package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/errs"
)

// Config is the Twilio account and the two WhatsApp numbers involved.
type Config struct {
	AccountSID   string
	AuthToken    string
	FromNumber   string
	SupportPhone string
	BaseURL      string
	Timeout      time.Duration
}

func (c Config) complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != "" && c.SupportPhone != ""
}

// WhatsApp sends ticket notifications through the Twilio Messages API.
// It sends once per call and never retries.
type WhatsApp struct {
	cfg    Config
	http   *resty.Client
	now    func() time.Time
	enable bool
}

// New returns a notifier. With incomplete credentials it is disabled and
// every Notify returns errs.ErrNotifierDisabled.
func New(cfg Config) *WhatsApp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "APIHub-Support/1.0")
	return &WhatsApp{
		cfg:    cfg,
		http:   client,
		now:    func() time.Time { return time.Now().UTC() },
		enable: cfg.complete(),
	}
}

func (w *WhatsApp) Enabled() bool { return w.enable }

// Message is the text delivered to the support channel for a new ticket.
func Message(ticketID uint64, details string, openedAt time.Time) string {
	return fmt.Sprintf("New Support Ticket #%d\n\nDetails: %s\n\nOpened at: %s UTC",
		ticketID, details, openedAt.UTC().Format("2006-01-02 15:04:05"))
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (w *WhatsApp) Notify(ctx context.Context, ticketID uint64, body string) error {
	if !w.enable {
		return errs.ErrNotifierDisabled
	}
	var apiErr twilioError
	resp, err := w.http.R().
		SetContext(ctx).
		SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken).
		SetFormData(map[string]string{
			"From": "whatsapp:" + w.cfg.FromNumber,
			"To":   "whatsapp:" + w.cfg.SupportPhone,
			"Body": Message(ticketID, body, w.now()),
		}).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/" + w.cfg.AccountSID + "/Messages.json")
	if err != nil {
		return fmt.Errorf("twilio: send message: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("twilio: status %d: %s (code %d)", resp.StatusCode(), apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("twilio: status %d", resp.StatusCode())
	}
	log.Info().Uint64("ticket_id", ticketID).Msg("notifier: whatsapp notification sent")
	return nil
}
