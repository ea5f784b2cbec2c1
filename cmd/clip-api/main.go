// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	internal_capture "github.com/clipperai/internal/audio/capture"
	internal_enhance "github.com/clipperai/internal/enhance"
	internal_session "github.com/clipperai/internal/session"
	internal_audiostore "github.com/clipperai/internal/store/audiostore"
	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	internal_transcribe "github.com/clipperai/internal/transcribe"
	clip_routers "github.com/clipperai/api/routers"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config init failed: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
		commons.Console(true),
	)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("clip-api exited: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger commons.Logger) error {
	clips := internal_clipstore.Open(logger, cfg.Storage.ClipDBPath)
	defer func() { _ = clips.Close() }()

	audio, err := internal_audiostore.Open(logger, cfg.Storage.AudioStorePath)
	if err != nil {
		return fmt.Errorf("opening audio store: %w", err)
	}
	defer func() { _ = audio.Close() }()

	transcriber, err := internal_transcribe.NewTranscriber(logger, cfg.Transcriber)
	if err != nil {
		return fmt.Errorf("building transcriber: %w", err)
	}
	prober := internal_transcribe.NewDialProber(cfg.Transcriber.Endpoint)
	retryEngine := internal_transcribe.NewEngine(logger, transcriber, prober, cfg.Transcriber.MinBlobBytes)

	recorder := internal_capture.NewEngine(logger, func() internal_capture.Source {
		return internal_capture.NewALSASource(cfg.Capture.Device)
	})
	titles := internal_enhance.NewTitleGenerator(logger, cfg.Enhance)
	formatter := internal_enhance.NewFormatter(logger, cfg.Enhance)

	session := internal_session.New(logger, recorder, audio, clips, retryEngine, titles, formatter)
	defer session.Close()

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	clip_routers.HealthCheckRoutes(cfg, engine, logger, clips)
	clip_routers.ClipApiRoute(cfg, engine, logger, clips)
	clip_routers.SessionApiRoute(cfg, engine, logger, session)
	clip_routers.TranscriptionApiRoute(cfg, engine, logger, session, retryEngine)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("clip-api listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("clip-api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
