package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prachitbhike/insurintel-sub000/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  "Serves companies, observations, sector stats, and scores over HTTP. When server.cron_schedule is configured, also runs scheduled batch ingestion.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		api := server.New(env.Store, env.Pipeline)

		if schedule := cfg.Server.CronSchedule; schedule != "" {
			c := cron.New()
			_, err := c.AddFunc(schedule, func() {
				if _, err := env.Pipeline.RunBatch(ctx); err != nil {
					zap.L().Error("scheduled ingestion failed", zap.Error(err))
				}
			})
			if err != nil {
				return eris.Wrapf(err, "bad cron schedule %q", schedule)
			}
			c.Start()
			defer func() { <-c.Stop().Done() }()
			zap.L().Info("scheduled ingestion enabled", zap.String("schedule", schedule))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Handler(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
