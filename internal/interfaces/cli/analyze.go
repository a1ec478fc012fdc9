package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/analytics"
)

func newAnalyzeCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "AR health analytics: aging, summary, forecasts",
	}
	cmd.AddCommand(
		newAgingCmd(app),
		newSummaryCmd(app),
		newForecastCmd(app),
		newScenariosCmd(app),
	)
	return cmd
}

func newAgingCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}
	var byCustomer bool

	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Aging summary of open receivables by overdue bucket",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}
			svc := analytics.NewService(app.cfg.Analytics, app.log)

			if byCustomer {
				rows := svc.CustomerAgingSummary(ds, asOf)
				if app.opts.output == "json" {
					return printJSON(rows)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "CUSTOMER\tNAME\tOPEN AR\tINVOICES\n")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", r.CustomerID, r.CustomerName, r.TotalAR, r.InvoiceCount)
				}
				return w.Flush()
			}

			lines := svc.AgingSummary(ds, asOf)
			if app.opts.output == "json" {
				return printJSON(lines)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "BUCKET\tINVOICES\tAMOUNT\tPERCENT\n")
			for _, l := range lines {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f%%\n", l.Bucket, l.InvoiceCount, l.TotalAmount, l.Percentage)
			}
			return w.Flush()
		},
	}
	data.register(cmd)
	cmd.Flags().BoolVar(&byCustomer, "by-customer", false, "pivot by customer instead of bucket")
	return cmd
}

func newSummaryCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Full AR health report: totals, DSO, CEI, payment behaviour",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}
			s := analytics.NewService(app.cfg.Analytics, app.log).Summary(ds, asOf)

			if app.opts.output == "json" {
				return printJSON(s)
			}

			fmt.Printf("Total AR:           %.2f (%d open invoices)\n", s.TotalAR, s.OpenInvoices)
			fmt.Printf("Overdue AR:         %.2f (%.2f%%, %d invoices)\n", s.OverdueAR, s.OverduePercentage, s.OverdueInvoices)
			fmt.Printf("DSO:                %.2f days\n", s.DSO)
			fmt.Printf("CEI:                %.2f\n", s.CEI)
			fmt.Printf("Avg open invoice:   %.2f\n", s.AvgInvoiceAmount)
			fmt.Printf("Avg days to pay:    %.2f (median %.2f)\n", s.Behavior.AvgDaysToPayment, s.Behavior.MedianDaysToPayment)
			fmt.Printf("Late payment rate:  %.2f%%\n", s.Behavior.LatePaymentRatePct)
			return nil
		},
	}
	data.register(cmd)
	return cmd
}

func newForecastCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}
	var gapDays int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Expected cash inflows over the next 7/14/30 days",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}
			svc := analytics.NewService(app.cfg.Analytics, app.log)
			fc := svc.ForecastInflows(ds, asOf)
			gap := svc.CashGapAnalysis(ds, asOf, gapDays)

			if app.opts.output == "json" {
				return printJSON(map[string]interface{}{"forecast": fc, "cash_gap": gap})
			}

			fmt.Printf("Next 7 days:   %.2f\n", fc.Days7)
			fmt.Printf("Next 14 days:  %.2f\n", fc.Days14)
			fmt.Printf("Next 30 days:  %.2f\n", fc.Days30)
			fmt.Printf("\nOutstanding AR:       %.2f\n", gap.TotalAR)
			fmt.Printf("Expected in %d days:  %.2f\n", gapDays, gap.ExpectedCollections)
			fmt.Printf("Cash gap:             %.2f (%.2f%%)\n", gap.Gap, gap.GapPercentage)
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().IntVar(&gapDays, "days", 30, "cash-gap horizon in days")
	return cmd
}

func newScenariosCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}
	var days int
	var seed int64

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Monte-Carlo collection scenarios with P10/P50/P90",
		RunE: func(_ *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}
			svc := analytics.NewService(app.cfg.Analytics, app.log)
			scenarios := svc.SimulateScenarios(ds, asOf, days, seed)
			p := analytics.SummarizeScenarios(scenarios)

			if app.opts.output == "json" {
				return printJSON(map[string]interface{}{
					"days_ahead":  days,
					"runs":        len(scenarios),
					"percentiles": p,
				})
			}

			fmt.Printf("Runs:  %d over %d days\n", len(scenarios), days)
			fmt.Printf("P10:   %.2f (pessimistic)\n", p.P10)
			fmt.Printf("P50:   %.2f (expected)\n", p.P50)
			fmt.Printf("P90:   %.2f (optimistic)\n", p.P90)
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().IntVar(&days, "days", 30, "simulation horizon in days")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for reproducible runs")
	return cmd
}
