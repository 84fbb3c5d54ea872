package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psds-microservice/apihub-support/internal/model"
)

func TestNewTicketEvent(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	closed := created.Add(2 * time.Hour)
	ticket := &model.Ticket{ID: 12, Query: "q", Contact: "anonymous", Status: model.TicketStatusClosed, CreatedAt: created, ClosedAt: &closed}

	body, err := json.Marshal(NewTicketEvent(EventTicketClosed, ticket))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "ticket.closed", decoded["event"])
	assert.EqualValues(t, 12, decoded["ticket_id"])
	assert.Equal(t, "closed", decoded["status"])
	assert.Equal(t, "2026-05-01T14:00:00Z", decoded["closed_at"])
}

func TestProducerDisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, "apihub.tickets")
	assert.False(t, p.Enabled())
	p.ProduceTicketEvent(context.Background(), EventTicketCreated, &model.Ticket{ID: 1})
	assert.NoError(t, p.Close())
}
