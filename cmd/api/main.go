package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studentscore/internal/config"
	"studentscore/internal/predict"
	"studentscore/internal/web"
	"studentscore/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Logger().Fatal("load config", zap.Error(err))
	}
	logger := utils.NewLogger(cfg.LogFile, cfg.LogLevel)
	utils.SetLogger(logger)
	defer logger.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	store := predict.NewStore(cfg.ArtifactDir, cfg.StrictSchema)
	if p, err := store.Reload(); err != nil {
		logger.Warn("artifacts not loaded, prediction routes return 503 until they are available",
			zap.String("dir", cfg.ArtifactDir), zap.Error(err))
	} else {
		logger.Info("artifacts loaded", zap.String("dir", cfg.ArtifactDir), zap.String("model", p.ModelName()))
	}

	staging, err := web.NewStaging(cfg.StagingDir)
	if err != nil {
		logger.Fatal("staging dir", zap.Error(err))
	}

	h := web.NewHandler(store, staging, logger, cfg.MaxUploadBytes)
	router := web.NewRouter(h, web.Options{APIKey: cfg.APIKey, CORSOrigins: cfg.CORSOrigins})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if p, err := store.Reload(); err != nil {
					logger.Error("reload artifacts", zap.Error(err))
				} else {
					logger.Info("artifacts reloaded", zap.String("model", p.ModelName()))
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
