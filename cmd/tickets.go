package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/apihub-support/internal/application"
	"github.com/psds-microservice/apihub-support/internal/model"
	"github.com/psds-microservice/apihub-support/internal/service"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Inspect and close support tickets from the terminal",
}

var (
	listStatus string
	listLimit  int
)

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets; open tickets are shown oldest first",
	RunE:  runTicketsList,
}

var ticketsCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsClose,
}

func init() {
	ticketsListCmd.Flags().StringVar(&listStatus, "status", string(model.TicketStatusOpen), "open or closed")
	ticketsListCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of tickets (0 = all)")
	ticketsCmd.AddCommand(ticketsListCmd)
	ticketsCmd.AddCommand(ticketsCloseCmd)
}

func openOperator() (*application.Operator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return application.NewOperator(cfg, nil)
}

func runTicketsList(cmd *cobra.Command, args []string) error {
	status := model.TicketStatus(listStatus)
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", listStatus)
	}
	op, err := openOperator()
	if err != nil {
		return err
	}
	defer op.Close()

	views, err := op.Tickets.List(cmd.Context(), status, listLimit)
	if err != nil {
		return err
	}
	writeTickets(cmd, views)
	return nil
}

func writeTickets(cmd *cobra.Command, views []service.TicketView) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tAGE (h)\tSEVERITY\tCONTACT\tCREATED\tQUERY")
	for _, v := range views {
		query := v.Query
		if r := []rune(query); len(r) > 60 {
			query = string(r[:57]) + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\t%s\t%q\n",
			v.ID, v.Status.Label(), v.AgeHours, v.Severity, v.Contact,
			v.CreatedAt.UTC().Format("2006-01-02 15:04"), query)
	}
	_ = w.Flush()
}

func runTicketsClose(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ticket id %q", args[0])
	}
	op, err := openOperator()
	if err != nil {
		return err
	}
	defer op.Close()

	t, err := op.Tickets.Close(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ticket #%d closed at %s\n", t.ID, t.ClosedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return nil
}
