package escalation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsTicket(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   bool
	}{
		{"fallback phrase", FallbackPhrase, true},
		{"upper case", "I CANNOT RESOLVE THIS right now", true},
		{"inside a sentence", "That question is not related to APIHub.", true},
		{"part of a longer word run", "please contact supporters", true},
		{"curly-free apostrophe", "Honestly I'm not sure about that.", true},
		{"hyphenated marker", "This looks OFF-TOPIC.", true},
		{"plain answer", "The search endpoint allows 100 requests per minute.", false},
		{"near miss", "I cannot resolve DNS for you, try again.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsTicket(tt.answer))
		})
	}
}

func TestEveryMarkerTriggers(t *testing.T) {
	for _, m := range Markers {
		assert.True(t, NeedsTicket("prefix "+strings.ToUpper(m)+" suffix"), m)
		assert.Equal(t, m, MatchedMarker(m))
	}
}

func TestDecide(t *testing.T) {
	assert.Equal(t, DecisionAnswer, Decide("Use the Authorization header.", nil))
	assert.Equal(t, DecisionEscalate, Decide(FallbackPhrase, nil))
	assert.Equal(t, DecisionModelFailure, Decide("", context.DeadlineExceeded))
	assert.Equal(t, DecisionModelFailure, Decide("fine answer", errors.New("boom")))
	assert.Equal(t, "escalate", DecisionEscalate.String())
}
