package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/concept"
	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/edgar"
	"github.com/prachitbhike/insurintel-sub000/internal/pipeline"
	"github.com/prachitbhike/insurintel-sub000/internal/score"
	"github.com/prachitbhike/insurintel-sub000/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "insurintel",
	Short: "Insurance disclosure normalization and prospect scoring",
	Long:  "Ingests public financial disclosures for a fixed insurance universe, normalizes them into canonical metrics, and scores operational pain per sector.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		// Static tables are code; a bad edit should fail every command.
		if err := concept.ValidateMappings(); err != nil {
			return err
		}
		return score.ValidatePainTable()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// env bundles the shared runtime pieces commands need.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	client := edgar.NewClient(cfg.EDGAR)
	return &env{
		Store:    st,
		Pipeline: pipeline.New(client, st, *cfg),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
