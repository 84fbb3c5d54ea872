// Package escalation decides whether a chat answer must be turned into a support ticket.
//
// The rule is lexical: an answer escalates when it contains one of a fixed set of
// marker phrases anywhere in its text, compared case-insensitively. There is no
// semantic classification.
package escalation

import "strings"

// Markers are the phrases that signal the model could not answer.
var Markers = []string{
	"i cannot resolve this",
	"off-topic",
	"not related",
	"i'm not sure",
	"contact support",
	"ticket will be created",
	"unable to provide an answer",
}

// FallbackPhrase is what the model is instructed to reply with for out-of-scope questions.
// It contains two markers.
const FallbackPhrase = "I cannot resolve this. A support ticket will be created."

type Decision int

const (
	// DecisionAnswer returns the model answer unchanged.
	DecisionAnswer Decision = iota
	// DecisionEscalate opens a ticket for the user's question.
	DecisionEscalate
	// DecisionModelFailure opens a ticket because the model call failed.
	DecisionModelFailure
)

func (d Decision) String() string {
	switch d {
	case DecisionEscalate:
		return "escalate"
	case DecisionModelFailure:
		return "model_failure"
	default:
		return "answer"
	}
}

// NeedsTicket reports whether answer contains any marker phrase.
func NeedsTicket(answer string) bool {
	return MatchedMarker(answer) != ""
}

// MatchedMarker returns the first marker found in answer, or "".
func MatchedMarker(answer string) string {
	lower := strings.ToLower(answer)
	for _, m := range Markers {
		if strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}

// Decide applies the policy to the outcome of one model call.
func Decide(answer string, err error) Decision {
	if err != nil {
		return DecisionModelFailure
	}
	if NeedsTicket(answer) {
		return DecisionEscalate
	}
	return DecisionAnswer
}
