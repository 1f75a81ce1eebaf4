package main

import (
	"fmt"
	"os"
	"time"

	"github.com/priceus/contracts-service/internal/auth"
	"github.com/priceus/contracts-service/internal/clock"
	"github.com/priceus/contracts-service/internal/config"
	"github.com/priceus/contracts-service/internal/db"
	"github.com/priceus/contracts-service/internal/excel"
	httphandler "github.com/priceus/contracts-service/internal/http"
	"github.com/priceus/contracts-service/internal/http/middleware"
	"github.com/priceus/contracts-service/internal/logger"
	"github.com/priceus/contracts-service/internal/notify"
	"github.com/priceus/contracts-service/internal/repository"
	"github.com/priceus/contracts-service/internal/service"
	"github.com/priceus/contracts-service/internal/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	receivableRepo := repository.NewReceivableRepository(database)
	notifier := notify.NewWebhookNotifier(cfg.Contracts.NotifyWebhookURL, log)
	tasks := task.NewRunner(log, 30*time.Second)

	contractService := service.NewContractService(
		contractRepo,
		receivableRepo,
		notifier,
		tasks,
		excel.NewGenerator(),
		clock.System{},
		cfg,
		log,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}

	tasks.Wait()
}
