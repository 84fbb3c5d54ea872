package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psds-microservice/apihub-support/internal/dashboard"
	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/escalation"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/service"
	"github.com/psds-microservice/apihub-support/internal/store/storetest"
)

type fakeModel struct {
	answer string
	err    error
	calls  [][]model.Turn
}

func (m *fakeModel) Complete(_ context.Context, msgs []model.Turn) (string, error) {
	m.calls = append(m.calls, msgs)
	return m.answer, m.err
}

func (m *fakeModel) Model() string { return "fake" }

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(context.Context, uint64, string) error {
	c.n++
	return nil
}

// cancelAwareTickets fails inserts made with a done context, like a real driver.
type cancelAwareTickets struct {
	*storetest.Tickets
}

func (s cancelAwareTickets) Create(ctx context.Context, t *model.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Tickets.Create(ctx, t)
}

type fakeStats struct{ stats *dashboard.Stats }

func (f fakeStats) Stats(context.Context) (*dashboard.Stats, error) { return f.stats, nil }

type fixture struct {
	h        *Handler
	model    *fakeModel
	store    *storetest.Tickets
	notifier *countingNotifier
	sessions *SessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		model:    &fakeModel{},
		store:    storetest.NewTickets(),
		notifier: &countingNotifier{},
	}
	svc := service.NewTicketService(f.store, f.notifier, nil)
	stats := fakeStats{stats: &dashboard.Stats{
		Total24h: 1245678,
		Daily:    []dashboard.DailyPoint{{Date: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), Count: 2700}},
	}}
	f.h = NewHandler(svc, f.model, stats, 5)
	var err error
	f.sessions, err = NewSessionStore(8)
	require.NoError(t, err)
	return f
}

func TestCommandsNeverCallModel(t *testing.T) {
	utterances := map[string]string{
		"show help":                      "help",
		"  Show HELP please ":            "help",
		"list commands":                  "help",
		"show recent support tickets":    "recent_tickets",
		"show tickets":                   "recent_tickets",
		"show api usage statistics":      "api_stats",
		"show api stats":                 "api_stats",
		"show contact information":       "contact",
		"how do I contact support?":      "contact",
		"create manual support ticket":   "manual_ticket",
		"I want a new ticket":            "manual_ticket",
		"show tickets and show commands": "recent_tickets",
	}
	for utterance, want := range utterances {
		t.Run(utterance, func(t *testing.T) {
			f := newFixture(t)
			s := f.sessions.Create()
			r := f.h.Handle(context.Background(), s, utterance)
			assert.Equal(t, KindCommand, r.Kind)
			assert.Equal(t, want, r.Command)
			assert.Empty(t, f.model.calls)
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestShowHelpScenario(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "show help")
	assert.Equal(t, helpText, r.Content)
	assert.Zero(t, r.TicketID)
	assert.Empty(t, f.model.calls)
	assert.Len(t, s.Transcript(), 2)
}

func TestNewTicketCommandRaisesFormFlagOnce(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "new ticket")
	assert.Equal(t, manualFormPrompt, r.Content)
	assert.True(t, r.Flags.ShowManualForm)
	assert.True(t, s.TakeFlags().IsZero(), "flags are handed out once")
}

func TestNormalAnswerReturnedAsIs(t *testing.T) {
	f := newFixture(t)
	f.model.answer = "The search endpoint allows 20 requests per second.</div>"
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "What is the rate limit for the search endpoint?")
	assert.Equal(t, KindAnswer, r.Kind)
	assert.Equal(t, "The search endpoint allows 20 requests per second.", r.Content)
	assert.Zero(t, f.store.Len())
	assert.True(t, r.Flags.IsZero())

	require.Len(t, f.model.calls, 1)
	msgs := f.model.calls[0]
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, escalation.FallbackPhrase)
	assert.Equal(t, model.Turn{Role: model.RoleUser, Content: "What is the rate limit for the search endpoint?"}, msgs[len(msgs)-1])
}

func TestFallbackAnswerEscalates(t *testing.T) {
	f := newFixture(t)
	f.model.answer = escalation.FallbackPhrase
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "What's the weather today?")
	assert.Equal(t, KindEscalated, r.Kind)
	require.Equal(t, 1, f.store.Len())
	require.NotZero(t, r.TicketID)
	assert.True(t, strings.HasPrefix(r.Content, escalation.FallbackPhrase))
	assert.Contains(t, r.Content, "(`#1`)")
	assert.True(t, r.Flags.TicketCreated)
	assert.Equal(t, r.TicketID, r.Flags.CreatedTicketID)

	tk, err := f.store.GetByID(context.Background(), r.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "What's the weather today?", tk.Query)
	assert.Equal(t, model.ContactAnonymous, tk.Contact)
	assert.Equal(t, model.TicketStatusOpen, tk.Status)
	assert.Equal(t, 1, f.notifier.n)
}

func TestEscalationUsesCapturedContact(t *testing.T) {
	f := newFixture(t)
	f.model.answer = "Sorry, that is off-topic."
	s := f.sessions.Create()
	s.SetContact("dev@example.com")

	r := f.h.Handle(context.Background(), s, "tell me a joke")
	require.NotZero(t, r.TicketID)
	tk, err := f.store.GetByID(context.Background(), r.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", tk.Contact)
}

func TestEscalationTicketFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.model.answer = escalation.FallbackPhrase
	f.store.Err = errors.New("db down")
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "What's the weather today?")
	assert.Equal(t, KindEscalated, r.Kind)
	assert.Zero(t, r.TicketID)
	assert.Contains(t, r.Content, "encountered an error")
	assert.False(t, r.Flags.TicketCreated)
	assert.Len(t, s.Transcript(), 2)
}

func TestModelFailureOpensFallbackTicket(t *testing.T) {
	f := newFixture(t)
	f.model.err = context.DeadlineExceeded
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "How do I rotate my API key?")
	assert.Equal(t, KindModelFailure, r.Kind)
	require.Equal(t, 1, f.store.Len())
	assert.Contains(t, r.Content, context.DeadlineExceeded.Error())
	assert.Contains(t, r.Content, "(`#1`)")
	assert.True(t, r.Flags.ModelError)

	tk, err := f.store.GetByID(context.Background(), r.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.ContactModelFailure, tk.Contact)
	assert.Equal(t, "How do I rotate my API key?", tk.Query)
}

func TestModelFailureAndStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.model.err = errors.New("timeout")
	f.store.Err = errors.New("db down")
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "anything")
	assert.Equal(t, KindModelFailure, r.Kind)
	assert.Zero(t, r.TicketID)
	assert.Contains(t, r.Content, "I also failed to create a support ticket")
	assert.False(t, r.Flags.ModelError)
	assert.Len(t, s.Transcript(), 2)
}

func TestTicketsSurviveCancelledRequest(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(service.NewTicketService(cancelAwareTickets{f.store}, f.notifier, nil), f.model, nil, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.model.err = context.Canceled
	r := h.Handle(ctx, f.sessions.Create(), "How do I rotate my API key?")
	assert.Equal(t, KindModelFailure, r.Kind)
	require.NotZero(t, r.TicketID)
	tk, err := f.store.GetByID(context.Background(), r.TicketID)
	require.NoError(t, err)
	assert.Equal(t, model.ContactModelFailure, tk.Contact)

	f.model.err = nil
	f.model.answer = escalation.FallbackPhrase
	r = h.Handle(ctx, f.sessions.Create(), "What's the weather today?")
	assert.Equal(t, KindEscalated, r.Kind)
	require.NotZero(t, r.TicketID)
	assert.Equal(t, 2, f.store.Len())
}

func TestHistoryWindow(t *testing.T) {
	f := newFixture(t)
	f.model.answer = "ok"
	s := f.sessions.Create()

	for i := 0; i < 4; i++ {
		f.h.Handle(context.Background(), s, "question")
	}
	assert.Len(t, s.Transcript(), 8)
	last := f.model.calls[len(f.model.calls)-1]
	assert.Len(t, last, 1+DefaultHistoryWindow, "system prompt plus five turns")
	assert.Equal(t, model.RoleUser, last[len(last)-1].Role)
}

func TestRecentTicketsTable(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	f.store.Put(model.Ticket{ID: 1234567, Query: "Subject: " + strings.Repeat("x", 60) + "\n\nDescription:\nbody", Status: model.TicketStatusOpen, CreatedAt: at})
	f.store.Put(model.Ticket{ID: 2, Query: "short | pipe", Status: model.TicketStatusClosed, CreatedAt: at.Add(-time.Hour)})
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "show tickets")
	assert.Contains(t, r.Content, "| 234567 | Subject: "+strings.Repeat("x", 38)+"... | Open | 2026-06-01 09:30 |")
	assert.Contains(t, r.Content, `| 2 | short \| pipe | Closed | 2026-06-01 08:30 |`)
}

func TestRecentTicketsStoreError(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("db down")
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "show tickets")
	assert.Contains(t, r.Content, "Could not load recent tickets: db down")
}

func TestAPIStatsCommand(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()

	r := f.h.Handle(context.Background(), s, "show api stats")
	assert.Contains(t, r.Content, "**Total Requests (24h):** 1,245,678")
	assert.Contains(t, r.Content, "2026-06-10  2700")
}

func TestSubmitManualTicket(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()

	created, err := f.h.SubmitManualTicket(context.Background(), s, ManualTicket{
		Subject:     "Key rejected",
		Description: "401 on every call",
		Contact:     "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Subject: Key rejected\n\nDescription:\n401 on every call", created.Ticket.Query)
	assert.Equal(t, "ops@example.com", created.Ticket.Contact)
	assert.Equal(t, "ops@example.com", s.Contact())

	tr := s.Transcript()
	require.Len(t, tr, 1)
	assert.Contains(t, tr[0].Content, "Manual ticket `#1` has been created")
	assert.True(t, s.TakeFlags().TicketCreated)
}

func TestSubmitManualTicketRequiresFields(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()

	_, err := f.h.SubmitManualTicket(context.Background(), s, ManualTicket{Subject: "only subject"})
	assert.ErrorIs(t, err, errs.ErrInvalidTicket)
	_, err = SubmitManualTicket(context.Background(), f.h.tickets, ManualTicket{Description: "  "})
	assert.ErrorIs(t, err, errs.ErrInvalidTicket)
	assert.Zero(t, f.store.Len())
	assert.Empty(t, s.Transcript())
}

func TestSessionStoreResetAndEviction(t *testing.T) {
	f := newFixture(t)
	s := f.sessions.Create()
	f.h.Handle(context.Background(), s, "new ticket")

	got, err := f.sessions.Reset(s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Transcript())
	assert.True(t, got.TakeFlags().IsZero())

	_, err = f.sessions.Get("missing")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)

	small, err := NewSessionStore(1)
	require.NoError(t, err)
	first := small.Create()
	small.Create()
	_, err = small.Get(first.ID)
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b", sanitize(" a b</div> "))
	assert.Equal(t, "x y", sanitize("x</ div > y"))
	assert.Equal(t, "<div>kept", sanitize("<div>kept</div>"))
}
