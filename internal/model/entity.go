package model

import (
	"strings"
	"time"
)

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// Label is the capitalized form used in chat tables ("Open", "Closed").
func (s TicketStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

const (
	// ContactAnonymous is stored when the requester did not leave a contact.
	ContactAnonymous = "anonymous"
	// ContactModelFailure marks tickets opened because the model call itself failed.
	ContactModelFailure = "AI Chatbot Failure"
)

// Ticket is one support request. Query and CreatedAt never change after insert.
type Ticket struct {
	ID      uint64       `gorm:"primaryKey" json:"id"`
	Query   string       `gorm:"type:text;not null" json:"query"`
	Contact string       `gorm:"type:varchar(255);not null;default:anonymous" json:"contact"`
	Status  TicketStatus `gorm:"type:varchar(32);index;not null" json:"status"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Age is the time the ticket has been around as of now. It is never stored.
func (t *Ticket) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// Severity buckets an open ticket by age for the operator view.
type Severity string

const (
	SeverityFresh Severity = "fresh"
	SeverityAging Severity = "aging"
	SeverityStale Severity = "stale"
)

const (
	agingAfter = 24 * time.Hour
	staleAfter = 72 * time.Hour
)

func SeverityFor(age time.Duration) Severity {
	switch {
	case age >= staleAfter:
		return SeverityStale
	case age >= agingAfter:
		return SeverityAging
	default:
		return SeverityFresh
	}
}

// UsageLog is one logged API call consumed by the dashboard.
type UsageLog struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	API        string    `gorm:"column:api;type:varchar(128);index;not null;default:unknown_api" json:"api"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	UserID     string    `gorm:"type:varchar(255);not null;default:unknown_user" json:"user_id"`
	StatusCode int       `gorm:"not null;default:200" json:"status_code"`
	LatencyMS  int64     `json:"latency_ms,omitempty"`
}

func (UsageLog) TableName() string { return "api_usage_logs" }

const (
	DefaultUsageAPI    = "unknown_api"
	DefaultUsageUserID = "unknown_user"
	DefaultStatusCode  = 200
)

// ApplyDefaults fills the fields a log producer may omit.
func (l *UsageLog) ApplyDefaults(now time.Time) {
	if strings.TrimSpace(l.API) == "" {
		l.API = DefaultUsageAPI
	}
	if strings.TrimSpace(l.UserID) == "" {
		l.UserID = DefaultUsageUserID
	}
	if l.StatusCode == 0 {
		l.StatusCode = DefaultStatusCode
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = now
	}
	l.Timestamp = l.Timestamp.UTC()
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a chat transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
