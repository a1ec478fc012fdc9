package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/scheduler"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
	"github.com/turtacn/CashFlow-Sentinel/internal/domain/action"
)

func newScheduleCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}
	var showCadences bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Plan the follow-up cadence for every open invoice",
		Long:  "Schedule scores the book and expands a risk-tiered contact cadence for\neach open invoice, shifting touches past weekends and configured holidays.\nThe plan is printed but not persisted; the API server records plans in the\naction audit log.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showCadences {
				return printCadences(app)
			}

			ds, asOf, err := data.load()
			if err != nil {
				return err
			}

			scorer := scoring.NewService(app.cfg.Model, nil, app.log)
			scored, err := scorer.Score(cmd.Context(), ds, asOf)
			if err != nil {
				return err
			}

			sched := scheduler.New(action.NewMemoryRepository(), app.cfg.Scheduler, nil, app.log)
			planned, err := sched.Plan(cmd.Context(), scored.Invoices, asOf)
			if err != nil {
				return err
			}
			scheduler.SortBySchedule(planned)

			if app.opts.output == "json" {
				return printJSON(planned)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "DATE\tINVOICE\tCUSTOMER\tATTEMPT\tACTION\n")
			for _, a := range planned {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					a.ScheduledAt.Format("2006-01-02"), a.InvoiceID, a.CustomerID, a.Attempt, a.Type)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d touches planned\n", len(planned))
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().BoolVar(&showCadences, "cadences", false, "print the cadence table per risk category and exit")
	return cmd
}

func printCadences(app *appContext) error {
	summaries := scheduler.CadenceSummaries()

	if app.opts.output == "json" {
		return printJSON(summaries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "RISK CATEGORY\tTOUCHES\tOFFSETS (DAYS)\tSPAN (DAYS)\n")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%v\t%d\n", s.RiskCategory, s.TotalAttempts, s.CadenceDays, s.TotalDurationDays)
	}
	return w.Flush()
}
