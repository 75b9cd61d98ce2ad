package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"property-governance-backend/config"
	"property-governance-backend/routes"
)

func serveCommand(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd, load())
		},
	}
}

func serveRun(cmd *cobra.Command, cfg *config.Config) error {
	log := newLogger(cfg)
	log.WithField("version", version).Info("starting " + programName)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is empty, every request will be rejected")
	}

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := routes.StartServer(routes.SetupRouter(a.routerDeps()), cfg.Server, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", sig.String()).Info("shutting down")

	return srv.Shutdown(cfg.Server.ShutdownTimeout)
}
