package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/CashFlow-Sentinel/internal/application/scoring"
)

func newScoreCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score every open invoice for late-payment risk",
		Long:  "Score annotates each open invoice with a 0-100 late-payment risk score\nand a category (low, medium, high, very_high). A trained model artifact is\nused when available; otherwise the rule-based fallback applies.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}

			svc := scoring.NewService(app.cfg.Model, nil, app.log)
			res, err := svc.Score(cmd.Context(), ds, asOf)
			if err != nil {
				return err
			}

			if app.opts.output == "json" {
				return printJSON(res)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "INVOICE\tCUSTOMER\tAMOUNT\tDAYS OVERDUE\tSCORE\tCATEGORY\n")
			for i := range res.Invoices {
				inv := &res.Invoices[i]
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%s\n",
					inv.ID, inv.CustomerID, inv.Amount, inv.DaysOverdueAt, inv.RiskScore, inv.RiskCategory)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n%d invoices scored (%s)\n", len(res.Invoices), res.ModelKind)
			return nil
		},
	}
	data.register(cmd)
	return cmd
}

func newTrainCmd(app *appContext) *cobra.Command {
	data := &dataFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the late-payment risk model from payment history",
		Long:  "Train fits the configured model (gradient_boost or logistic) on the paid\ninvoices in the book and saves the artifact to model.artifact_path.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, asOf, err := data.load()
			if err != nil {
				return err
			}

			svc := scoring.NewService(app.cfg.Model, nil, app.log)
			metrics, err := svc.Train(cmd.Context(), ds, asOf)
			if err != nil {
				return err
			}

			if app.opts.output == "json" {
				return printJSON(metrics)
			}

			fmt.Printf("Model:          %s\n", metrics.ModelKind)
			fmt.Printf("Train samples:  %d\n", metrics.TrainSamples)
			fmt.Printf("Test samples:   %d\n", metrics.TestSamples)
			fmt.Printf("Train accuracy: %.4f\n", metrics.TrainAccuracy)
			fmt.Printf("Test accuracy:  %.4f\n", metrics.TestAccuracy)
			fmt.Printf("CV AUC:         %.4f ± %.4f\n", metrics.CVAUCMean, metrics.CVAUCStd)
			fmt.Printf("Late rate:      %.2f%%\n", metrics.LateRatePct)
			if app.cfg.Model.ArtifactPath != "" {
				fmt.Printf("Artifact:       %s\n", app.cfg.Model.ArtifactPath)
			}
			return nil
		},
	}
	data.register(cmd)
	return cmd
}
