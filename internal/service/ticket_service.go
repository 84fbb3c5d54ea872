package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/kafka"
	"github.com/psds-microservice/apihub-support/internal/metrics"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/store"
)

// DefaultRecentLimit is the size of the "recent tickets" views.
const DefaultRecentLimit = 5

// Notifier delivers a short message about a new ticket to the support channel.
type Notifier interface {
	Notify(ctx context.Context, ticketID uint64, body string) error
}

// TicketServicer is what the chat and HTTP layers need from the lifecycle manager.
type TicketServicer interface {
	Create(ctx context.Context, in NewTicket) (*Created, error)
	Get(ctx context.Context, id uint64) (*TicketView, error)
	Recent(ctx context.Context, limit int) ([]model.Ticket, error)
	List(ctx context.Context, status model.TicketStatus, limit int) ([]TicketView, error)
	Close(ctx context.Context, id uint64) (*model.Ticket, error)
}

// NewTicket is the input of Create. Source only labels metrics.
type NewTicket struct {
	Query   string
	Contact string
	Source  string
}

// Created is the outcome of a successful insert. Warnings carry the
// non-fatal problems met after the ticket was stored.
type Created struct {
	Ticket   *model.Ticket `json:"ticket"`
	Warnings []string      `json:"warnings,omitempty"`
}

// TicketView is a ticket with its derived age.
type TicketView struct {
	model.Ticket
	AgeHours float64        `json:"age_hours"`
	Severity model.Severity `json:"severity"`
}

func NewTicketView(t model.Ticket, now time.Time) TicketView {
	age := t.Age(now)
	return TicketView{
		Ticket:   t,
		AgeHours: math.Round(age.Hours()*100) / 100,
		Severity: model.SeverityFor(age),
	}
}

type TicketService struct {
	store    store.TicketStore
	notifier Notifier
	events   kafka.TicketEventProducer
	now      func() time.Time
}

// NewTicketService wires the lifecycle manager. notifier and events may be nil.
func NewTicketService(s store.TicketStore, n Notifier, events kafka.TicketEventProducer) *TicketService {
	return &TicketService{
		store:    s,
		notifier: n,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ TicketServicer = (*TicketService)(nil)

// Create inserts an open ticket and makes exactly one notification attempt.
// Only a failed insert is returned as an error.
func (s *TicketService) Create(ctx context.Context, in NewTicket) (*Created, error) {
	contact := strings.TrimSpace(in.Contact)
	if contact == "" {
		contact = model.ContactAnonymous
	}
	now := s.now()
	t := &model.Ticket{
		Query:     in.Query,
		Contact:   contact,
		Status:    model.TicketStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		metrics.TicketCreateFailuresTotal.Inc()
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	source := in.Source
	if source == "" {
		source = metrics.SourceManual
	}
	metrics.TicketsCreatedTotal.WithLabelValues(source).Inc()
	log.Info().Uint64("ticket_id", t.ID).Str("contact", t.Contact).Str("source", source).Msg("ticket: created")

	out := &Created{Ticket: t}
	if w := s.notify(ctx, t); w != "" {
		out.Warnings = append(out.Warnings, w)
	}
	s.publish(ctx, kafka.EventTicketCreated, t)
	return out, nil
}

func (s *TicketService) notify(ctx context.Context, t *model.Ticket) string {
	if s.notifier == nil {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return ""
	}
	err := s.notifier.Notify(ctx, t.ID, t.Query)
	if errors.Is(err, errs.ErrNotifierDisabled) {
		// Warned once at startup.
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return fmt.Sprintf("Failed to send WhatsApp notification for Ticket #%d: %v", t.ID, err)
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Uint64("ticket_id", t.ID).Msg("ticket: notification failed")
		return fmt.Sprintf("Failed to send WhatsApp notification for Ticket #%d: %v", t.ID, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return ""
}

func (s *TicketService) publish(ctx context.Context, event string, t *model.Ticket) {
	if s.events == nil {
		return
	}
	eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.events.ProduceTicketEvent(eventCtx, event, t)
}

func (s *TicketService) Get(ctx context.Context, id uint64) (*TicketView, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := NewTicketView(*t, s.now())
	return &v, nil
}

// Recent returns the newest tickets of any status, newest first.
func (s *TicketService) Recent(ctx context.Context, limit int) ([]model.Ticket, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.store.List(ctx, store.TicketFilter{Limit: limit})
}

// List returns tickets of one status. Open tickets come oldest first so the
// longest-waiting request is on top; other statuses come newest first.
// An empty status lists everything, newest first.
func (s *TicketService) List(ctx context.Context, status model.TicketStatus, limit int) ([]TicketView, error) {
	f := store.TicketFilter{Status: status}
	if status != model.TicketStatusOpen {
		f.Limit = limit
	}
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]TicketView, len(items))
	for i, t := range items {
		views[i] = NewTicketView(t, now)
	}
	if status == model.TicketStatusOpen {
		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		})
		if limit > 0 && len(views) > limit {
			views = views[:limit]
		}
	}
	return views, nil
}

// Close is the only transition to closed. Closing an already closed ticket
// rewrites closed_at.
func (s *TicketService) Close(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := s.store.Close(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	metrics.TicketsClosedTotal.Inc()
	log.Info().Uint64("ticket_id", id).Msg("ticket: closed")
	s.publish(ctx, kafka.EventTicketClosed, t)
	return t, nil
}
