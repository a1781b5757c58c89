package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/app"
	"github.com/conduit-lang/metagate/internal/cli/config"
	"github.com/conduit-lang/metagate/internal/log"
	"github.com/conduit-lang/metagate/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(flags *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, err := log.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			srv, err := server.New(&server.Config{
				Address:           cfg.Server.Addr(),
				Handler:           a.Handler(),
				ReadTimeout:       cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
				MaxHeaderBytes:    1 << 20,
				CORSOrigins:       cfg.Server.CORSOrigins,
			})
			if err != nil {
				_ = a.Close()
				return err
			}

			gs := server.NewGracefulShutdown(srv, server.ShutdownConfig{
				Timeout: cfg.Server.ShutdownTimeout,
				Logger:  logger,
			})
			gs.RegisterHook(func(ctx context.Context) error {
				return a.Close()
			})

			logger.Info("serving", zap.String("addr", cfg.Server.Addr()), zap.String("version", Version))
			return gs.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
