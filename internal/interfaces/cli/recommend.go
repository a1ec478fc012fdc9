package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/recommendation"
	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
)

func newRecommendCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}
	var topN, minPriority int

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Produce the prioritized collections action plan",
		Long:  "Recommend scores the book, then maps each open invoice to a concrete\ncollection action with priority, urgency, and message tone, ordered by\npriority descending.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}

			scorer := scoring.NewService(app.cfg.Model, nil, app.log)
			scored, err := scorer.Score(cmd.Context(), ds, asOf)
			if err != nil {
				return err
			}

			engine := recommendation.NewEngine(recommendation.DefaultConfig(), app.log)
			recs := engine.Recommend(scored.Invoices, ds.CustomerByID(), map[string]int{}, asOf)
			if topN > 0 {
				recs = recommendation.Top(recs, topN, minPriority)
			}

			if app.opts.output == "json" {
				return printJSON(recs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "PRIORITY\tINVOICE\tCUSTOMER\tAMOUNT\tDAYS OVERDUE\tACTION\tURGENCY\tTONE\n")
			for _, r := range recs {
				name := r.CustomerName
				if name == "" {
					name = r.CustomerID
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\t%s\t%s\t%s\n",
					r.Priority, r.InvoiceID, name, r.Amount, r.DaysOverdue, r.Action, r.Urgency, r.Tone)
			}
			return w.Flush()
		},
	}
	data.register(cmd)
	cmd.Flags().IntVar(&topN, "top", 0, "limit output to the N highest-priority entries")
	cmd.Flags().IntVar(&minPriority, "min-priority", 0, "drop entries below this priority (with --top)")
	return cmd
}
