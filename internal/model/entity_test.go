package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageLogApplyDefaults(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	var l UsageLog
	l.ApplyDefaults(now)
	assert.Equal(t, DefaultUsageAPI, l.API)
	assert.Equal(t, DefaultUsageUserID, l.UserID)
	assert.Equal(t, 200, l.StatusCode)
	assert.Equal(t, now, l.Timestamp)

	kept := UsageLog{API: "Jokes API", UserID: "u1", StatusCode: 503, Timestamp: now.Add(-time.Hour)}
	kept.ApplyDefaults(now)
	assert.Equal(t, "Jokes API", kept.API)
	assert.Equal(t, 503, kept.StatusCode)
	assert.Equal(t, now.Add(-time.Hour), kept.Timestamp)
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityFresh, SeverityFor(time.Hour))
	assert.Equal(t, SeverityAging, SeverityFor(24*time.Hour))
	assert.Equal(t, SeverityStale, SeverityFor(100*time.Hour))
}

func TestTicketStatus(t *testing.T) {
	assert.Equal(t, "Open", TicketStatusOpen.Label())
	assert.Equal(t, "Closed", TicketStatusClosed.Label())
	assert.True(t, TicketStatusClosed.Valid())
	assert.False(t, TicketStatus("pending").Valid())
}
