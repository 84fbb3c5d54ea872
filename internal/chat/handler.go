// Package chat turns one user utterance into one assistant reply.
//
// Built-in commands are answered directly. Everything else goes to the model,
// and answers that signal the model could not help, as well as failed model
// calls, open a support ticket.
package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/psds-microservice/apihub-support/internal/dashboard"
	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/escalation"
	"github.com/psds-microservice/apihub-support/internal/llm"
	"github.com/psds-microservice/apihub-support/internal/metrics"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/service"
)

// DefaultHistoryWindow is how many transcript turns are sent to the model.
const DefaultHistoryWindow = 5

const (
	KindCommand      = "command"
	KindAnswer       = "answer"
	KindEscalated    = "escalated"
	KindModelFailure = "model_failure"
)

// SystemPrompt pins the model to the APIHub topics and to the fallback phrase.
var SystemPrompt = `You are APIMAN, the support assistant for APIHub. Help users with APIHub questions and keep answers accurate and concise.

You only cover these topics:
- API Endpoints: available API URLs, versions and what they are for.
- Authentication: generating, using and managing API keys, access tokens (OAuth 2.0, JWT) and authentication flows.
- Rate Limits: request limits, rate limit headers and how to stay under them.
- Error Codes: common HTTP status codes (4xx, 5xx), APIHub error messages and troubleshooting steps.
- Data Formats: request and response structures (JSON, XML), required headers (Content-Type, Accept) and validation.

If a question is outside these topics, is ambiguous, or you cannot answer it confidently, reply with exactly this phrase and nothing else:
"` + escalation.FallbackPhrase + `"

Keep a professional and friendly tone.`

var divCloseTag = regexp.MustCompile(`</\s*div\s*>`)

// sanitize drops stray closing div tags the model sometimes echoes back.
func sanitize(answer string) string {
	return strings.TrimSpace(divCloseTag.ReplaceAllString(answer, ""))
}

// StatsSource feeds the "api stats" command.
type StatsSource interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
}

// Reply is the assistant side of one turn.
type Reply struct {
	Content  string   `json:"content"`
	Kind     string   `json:"kind"`
	Command  string   `json:"command,omitempty"`
	TicketID uint64   `json:"ticket_id,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Flags    Flags    `json:"flags"`
}

type Handler struct {
	tickets service.TicketServicer
	model   llm.Client
	stats   StatsSource
	window  int
}

// NewHandler builds a turn handler. stats may be nil; window <= 0 uses DefaultHistoryWindow.
func NewHandler(tickets service.TicketServicer, client llm.Client, stats StatsSource, window int) *Handler {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Handler{tickets: tickets, model: client, stats: stats, window: window}
}

// Handle appends the user utterance and exactly one assistant turn to the session.
func (h *Handler) Handle(ctx context.Context, s *Session, utterance string) Reply {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.append(model.RoleUser, utterance)
	normalized := strings.ToLower(strings.TrimSpace(utterance))

	var r Reply
	if kind, ok := matchCommand(normalized); ok {
		r = h.runCommand(ctx, s, kind)
	} else {
		r = h.ask(ctx, s, utterance)
	}

	s.append(model.RoleAssistant, r.Content)
	r.Flags = s.TakeFlags()
	metrics.ChatTurnsTotal.WithLabelValues(r.Kind).Inc()
	return r
}

func (h *Handler) runCommand(ctx context.Context, s *Session, kind commandKind) Reply {
	r := Reply{Kind: KindCommand, Command: kind.String()}
	switch kind {
	case commandRecentTickets:
		r.Content = h.recentTicketsMarkdown(ctx)
	case commandAPIStats:
		r.Content = h.apiStatsMarkdown(ctx)
	case commandContact:
		r.Content = contactText
	case commandHelp:
		r.Content = helpText
	case commandManualTicket:
		r.Content = manualFormPrompt
		s.raise(func(f *Flags) { f.ShowManualForm = true })
	}
	log.Debug().Str("session_id", s.ID).Str("command", r.Command).Msg("chat: command")
	return r
}

func (h *Handler) messages(s *Session, utterance string) []model.Turn {
	history := s.window(h.window)
	msgs := make([]model.Turn, 0, len(history)+2)
	msgs = append(msgs, model.Turn{Role: model.RoleSystem, Content: SystemPrompt})
	msgs = append(msgs, history...)
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleUser || last.Content != utterance {
		msgs = append(msgs, model.Turn{Role: model.RoleUser, Content: utterance})
	}
	return msgs
}

func (h *Handler) ask(ctx context.Context, s *Session, utterance string) Reply {
	answer, err := h.model.Complete(ctx, h.messages(s, utterance))
	if err == nil {
		answer = sanitize(answer)
	}

	switch escalation.Decide(answer, err) {
	case escalation.DecisionModelFailure:
		return h.modelFailure(ctx, s, utterance, err)
	case escalation.DecisionEscalate:
		return h.escalate(ctx, s, utterance, answer)
	default:
		return Reply{Kind: KindAnswer, Content: answer}
	}
}

// escalate and modelFailure insert with a context detached from the request.
func (h *Handler) escalate(ctx context.Context, s *Session, utterance, answer string) Reply {
	r := Reply{Kind: KindEscalated}
	log.Info().Str("session_id", s.ID).Str("marker", escalation.MatchedMarker(answer)).Msg("chat: escalating")

	created, err := h.tickets.Create(context.WithoutCancel(ctx), service.NewTicket{
		Query:   utterance,
		Contact: s.Contact(),
		Source:  metrics.SourceEscalation,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("chat: escalation ticket not created")
		r.Content = answer + "\n\n**Note:** I tried to create a support ticket, but encountered an error. Please try again or contact support directly."
		return r
	}

	id := created.Ticket.ID
	r.TicketID = id
	r.Warnings = created.Warnings
	r.Content = answer + fmt.Sprintf("\n\n**Important:** A support ticket (`#%d`) has been automatically created for your query. Our team will review it and get back to you shortly.", id)
	s.raise(func(f *Flags) {
		f.TicketCreated = true
		f.CreatedTicketID = id
	})
	return r
}

func (h *Handler) modelFailure(ctx context.Context, s *Session, utterance string, cause error) Reply {
	r := Reply{Kind: KindModelFailure}
	log.Warn().Err(cause).Str("session_id", s.ID).Msg("chat: model call failed")

	created, err := h.tickets.Create(context.WithoutCancel(ctx), service.NewTicket{
		Query:   utterance,
		Contact: model.ContactModelFailure,
		Source:  metrics.SourceModelFailure,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("chat: fallback ticket not created")
		r.Content = fmt.Sprintf("Oops! I encountered an internal error: '%v'. I also failed to create a support ticket automatically. Please try again or contact support directly.", cause)
		return r
	}

	r.TicketID = created.Ticket.ID
	r.Warnings = created.Warnings
	r.Content = fmt.Sprintf("Oops! I encountered an internal error while processing your request: '%v'. Don't worry, a support ticket (`#%d`) has been automatically created for this issue. Our team will investigate!", cause, r.TicketID)
	s.raise(func(f *Flags) { f.ModelError = true })
	return r
}

// ManualTicket is the form a user fills after the "new ticket" command.
type ManualTicket struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

// Query is the stored ticket text built from the form.
func (m ManualTicket) Query() string {
	return fmt.Sprintf("Subject: %s\n\nDescription:\n%s", m.Subject, m.Description)
}

func (m ManualTicket) Validate() error {
	if strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.Description) == "" {
		return errs.ErrInvalidTicket
	}
	return nil
}

// SubmitManualTicket opens a ticket from the form outside any session.
func SubmitManualTicket(ctx context.Context, tickets service.TicketServicer, m ManualTicket) (*service.Created, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return tickets.Create(ctx, service.NewTicket{
		Query:   m.Query(),
		Contact: m.Contact,
		Source:  metrics.SourceManual,
	})
}

// SubmitManualTicket opens a ticket from the form and records it in the session transcript.
// The contact, when given, is reused for later escalations in the same session.
func (h *Handler) SubmitManualTicket(ctx context.Context, s *Session, m ManualTicket) (*service.Created, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	created, err := SubmitManualTicket(ctx, h.tickets, m)
	if err != nil {
		return nil, err
	}
	if c := strings.TrimSpace(m.Contact); c != "" {
		s.SetContact(c)
	}
	s.append(model.RoleAssistant, fmt.Sprintf("Manual ticket `#%d` has been created. Our team will get back to you shortly. Feel free to ask more questions!", created.Ticket.ID))
	s.raise(func(f *Flags) {
		f.TicketCreated = true
		f.CreatedTicketID = created.Ticket.ID
	})
	return created, nil
}
