package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/universe"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the company universe from its YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := seedFile
		if path == "" {
			path = cfg.Ingest.UniverseFile
		}

		companies, err := universe.Load(path)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.UpsertCompanies(cmd.Context(), companies); err != nil {
			return err
		}

		zap.L().Info("universe seeded",
			zap.String("file", path),
			zap.Int("companies", len(companies)))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "universe file (default from config)")
	rootCmd.AddCommand(seedCmd)
}
