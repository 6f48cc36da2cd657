package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCIK string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and normalize disclosures for the universe",
	Long:  "Fetches company facts for every seeded company (or one company with --cik), resolves them into canonical metric observations, derives ratios, and persists the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if ingestCIK != "" {
			companies, err := env.Store.ListCompanies(ctx)
			if err != nil {
				return err
			}
			for _, c := range companies {
				if c.CIK == ingestCIK {
					_, err := env.Pipeline.IngestCompany(ctx, c)
					return err
				}
			}
			return eris.Errorf("cik %s is not in the seeded universe", ingestCIK)
		}

		summary, err := env.Pipeline.RunBatch(ctx)
		if err != nil {
			return err
		}
		for _, f := range summary.Failures {
			zap.L().Warn("ingestion failure", zap.String("company", f))
		}
		if summary.Succeeded == 0 && summary.Failed > 0 {
			return eris.New("every company in the batch failed")
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCIK, "cik", "", "ingest a single company by CIK")
	rootCmd.AddCommand(ingestCmd)
}
