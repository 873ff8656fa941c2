package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"student-violation-service/internal/auth"
	"student-violation-service/internal/cache"
	"student-violation-service/internal/config"
	"student-violation-service/internal/db"
	httphandler "student-violation-service/internal/http"
	"student-violation-service/internal/http/middleware"
	"student-violation-service/internal/logger"
	"student-violation-service/internal/repository"
	"student-violation-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(pingCtx, database); err != nil {
		log.Fatal().Err(err).Msg("database ping failed")
	}

	violationRepo := repository.NewViolationRepository(database)
	statsRepo := repository.NewStatsRepository(database)

	violationService := service.NewViolationService(violationRepo, loc)
	workflowService := service.NewWorkflowService(violationRepo)

	var statsService *service.StatsService
	if cfg.Redis.Addr != "" {
		statsCache := cache.NewStatsCache(cfg.Redis.Addr, cfg.Redis.StatsCacheTTL, log)
		defer statsCache.Close()
		statsService = service.NewStatsService(statsRepo, statsCache)
	} else {
		statsService = service.NewStatsService(statsRepo, nil)
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(violationService, workflowService, statsService, log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting student violation service")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
