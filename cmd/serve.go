package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"driveaudit/internal/api"
	"driveaudit/internal/api/handler/v1handler"
	"driveaudit/internal/auditor"
	"driveaudit/internal/config"
	"driveaudit/internal/orchestrator"
	"driveaudit/internal/pipeline"
	"driveaudit/internal/worker"
	"driveaudit/pkg/drive/googledrive"
	"driveaudit/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, deps api.Deps, cfg *config.Config) func(ctx context.Context) {
	server, err := api.NewServer(deps, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background scan workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			credentials, err := os.ReadFile(cfg.Google.CredentialsFile)
			if err != nil {
				logger.Fatal(ctx, "could not read service account credentials", zap.Error(err))
			}
			provider := googledrive.NewProvider(credentials)

			pipe := pipeline.New(strg, pipeline.NewOptions(cfg))
			orch := orchestrator.New(strg, provider, pipe)
			audit := auditor.New(strg, provider, orch, auditor.NewOptions(cfg))

			riverClient, err := worker.Start(ctx, strg.Pool, strg, provider, pipe)
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			stopWebserver := setupServer(ctx, api.Deps{Deps: v1handler.Deps{Auditor: audit}}, cfg)

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(ctx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
		},
	}

	return cmd
}
