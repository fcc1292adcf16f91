package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"routelink/internal/broadcast"
	"routelink/internal/config"
	"routelink/internal/controllers"
	"routelink/internal/logger"
	"routelink/internal/middleware"
	"routelink/internal/migrate"
	"routelink/internal/routes"
	"routelink/internal/scheduling"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the schema and run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Initialize structured logging to file
	accessLog := logger.Setup(cfg.Log)

	db, err := config.OpenDB(cfg.DB, logger.NewGormLogger())
	if err != nil {
		return err
	}
	if err := migrate.Up(db); err != nil {
		return err
	}

	hub := broadcast.NewHub(cfg.BroadcastBuf, 0)
	clock := scheduling.SystemClock(cfg.Location)
	engine := scheduling.New(db, scheduling.Options{
		Clock:     clock,
		Publisher: hub,
		TxTimeout: cfg.DB.TxTimeout,
	})
	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	h := controllers.New(controllers.Deps{
		Engine:   engine,
		DB:       db,
		Tokens:   tokens,
		Hub:      hub,
		Holidays: cfg.Holidays,
		Clock:    clock,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSOrigins)(routes.SetupRouter(h, tokens, accessLog)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error {
		log.Printf("🚀 Server running at %s", srv.Addr)
		logrus.WithField("addr", srv.Addr).Info("Server starting.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("Server shutting down.")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
