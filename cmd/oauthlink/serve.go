package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ihttp "github.com/dropDatabas3/oauthlink/internal/http"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				logger.L().Error("wiring failed", logger.Err(err))
				return err
			}
			defer a.Close()

			if migrate && a.pg != nil {
				if _, err := runMigrations(ctx, a.pg, cfg.Storage.IdentityTable); err != nil {
					return err
				}
			}

			logger.L().Info("oauthlink starting",
				logger.String("env", cfg.App.Env),
				logger.String("storage", cfg.Storage.Driver),
				logger.String("cache", cfg.Cache.Kind),
				logger.Count(len(a.manager.Providers())),
			)
			return ihttp.Start(ctx, cfg.Server.Addr, a.handler)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Aplicar migraciones pendientes antes de servir (solo postgres)")
	return cmd
}
