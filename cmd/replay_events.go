package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/psds-microservice/apihub-support/internal/kafka"
)

var replayEventsCmd = &cobra.Command{
	Use:   "replay-events",
	Short: "Re-publish a ticket.updated event for every ticket to Kafka",
	RunE:  runReplayEvents,
}

func runReplayEvents(cmd *cobra.Command, args []string) error {
	op, err := openOperator()
	if err != nil {
		return err
	}
	defer op.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	tickets, err := op.Store.All(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("tickets", len(tickets)).Msg("replay-events: loaded")

	if !op.Events.Enabled() {
		log.Warn().Msg("replay-events: KAFKA_BROKERS or KAFKA_TOPIC_TICKET not set, nothing published")
		return nil
	}
	for i := range tickets {
		op.Events.ProduceTicketEvent(ctx, kafka.EventTicketUpdated, &tickets[i])
		if (i+1)%50 == 0 || i == len(tickets)-1 {
			log.Info().Msgf("replay-events: sent %d/%d events", i+1, len(tickets))
		}
	}
	log.Info().Int("tickets", len(tickets)).Msg("replay-events: done")
	return nil
}
