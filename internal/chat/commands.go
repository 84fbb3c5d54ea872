package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	commandRecentTickets commandKind = iota + 1
	commandAPIStats
	commandContact
	commandHelp
	commandManualTicket
)

func (k commandKind) String() string {
	switch k {
	case commandRecentTickets:
		return "recent_tickets"
	case commandAPIStats:
		return "api_stats"
	case commandContact:
		return "contact"
	case commandHelp:
		return "help"
	case commandManualTicket:
		return "manual_ticket"
	default:
		return "none"
	}
}

type command struct {
	kind    commandKind
	aliases []string
}

// commands is checked in order; the first alias contained in the utterance wins.
var commands = []command{
	{commandRecentTickets, []string{"show recent support tickets", "show tickets"}},
	{commandAPIStats, []string{"show api usage statistics", "show api stats"}},
	{commandContact, []string{"show contact information", "show contact", "contact support"}},
	{commandHelp, []string{"show help", "commands"}},
	{commandManualTicket, []string{"create manual support ticket", "new ticket"}},
}

// matchCommand expects an already lower-cased, trimmed utterance.
func matchCommand(normalized string) (commandKind, bool) {
	for _, c := range commands {
		for _, a := range c.aliases {
			if strings.Contains(normalized, a) {
				return c.kind, true
			}
		}
	}
	return 0, false
}

const helpText = `### APIMAN Commands
You can ask me to:
- ` + "`show recent support tickets`" + ` or ` + "`show tickets`" + `: See a list of the latest support tickets.
- ` + "`show api usage statistics`" + ` or ` + "`show api stats`" + `: Get an overview of API consumption.
- ` + "`show contact information`" + ` or ` + "`show contact`" + `: Find ways to reach our support team.
- ` + "`create manual support ticket`" + ` or ` + "`new ticket`" + `: Open a form to submit a detailed support ticket.
- And of course, ask any question about APIHub endpoints, authentication, rate limits, errors, and data formats!`

const contactText = `### Contact & Resources
If you need further assistance or prefer direct contact, here are some options:

- [support@apihub.com](mailto:support@apihub.com)
- +1 (800) API-HELP
- [APIHub Documentation](https://docs.apihub.com)
`

const manualFormPrompt = "Alright, please fill out the details for your support ticket."

const subjectMaxLen = 50

// ticketSubject is the first line of the query, shortened for tables.
func ticketSubject(query string) string {
	subject, _, _ := strings.Cut(query, "\n")
	if r := []rune(subject); len(r) > subjectMaxLen {
		subject = string(r[:subjectMaxLen-3]) + "..."
	}
	return subject
}

// shortID keeps the last six characters of the id.
func shortID(id uint64) string {
	s := strconv.FormatUint(id, 10)
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return s
}

// markdownCell keeps a value from breaking the table row.
func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func (h *Handler) recentTicketsMarkdown(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("### Recent Support Tickets\n")
	b.WriteString("A quick overview of recently opened tickets:\n\n")
	tickets, err := h.tickets.Recent(ctx, 0)
	if err != nil {
		fmt.Fprintf(&b, "Could not load recent tickets: %v\n", err)
		return b.String()
	}
	if len(tickets) == 0 {
		b.WriteString("No recent tickets found in the database.\n")
		return b.String()
	}
	b.WriteString("| ID | Subject | Status | Created |\n")
	b.WriteString("|:---|:---|:---|:---|\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			shortID(t.ID),
			markdownCell(ticketSubject(t.Query)),
			t.Status.Label(),
			t.CreatedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	return b.String()
}

func (h *Handler) apiStatsMarkdown(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("### API Usage Statistics\n")
	if h.stats == nil {
		b.WriteString("Usage statistics are not available.\n")
		return b.String()
	}
	st, err := h.stats.Stats(ctx)
	if err != nil {
		fmt.Fprintf(&b, "Could not load usage statistics: %v\n", err)
		return b.String()
	}
	if st.Synthetic {
		b.WriteString("Insights into API consumption (demo data, no calls logged yet):\n\n")
	} else {
		b.WriteString("Insights into API consumption:\n\n")
	}
	fmt.Fprintf(&b, "**Total Requests (24h):** %s\n\n", groupThousands(st.Total24h))
	b.WriteString("#### Daily Request Volume\n")
	b.WriteString("```\n")
	b.WriteString("Date          Requests\n")
	b.WriteString("----------  ----------\n")
	for _, p := range st.Daily {
		fmt.Fprintf(&b, "%s  %d\n", p.Date.Format("2006-01-02"), p.Count)
	}
	b.WriteString("```\n")
	return b.String()
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
