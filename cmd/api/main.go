// Command api runs the job board HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/config"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/logger"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/server"
)

// @title Montalban Job Board API
// @version 1.0
// @description Job postings, seeker profiles and application tracking.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database failed to initialize")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to initialize")
	}
	defer srv.Close()

	httpServer := srv.HTTPServer()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("env", cfg.App.Env).Msg("API started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
