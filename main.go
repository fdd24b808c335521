package main

import (
	"fmt"
	"os"

	"github.com/Eursukkul/outing-service/config"
	"github.com/Eursukkul/outing-service/internal/repository"
	"github.com/Eursukkul/outing-service/pkg/database"
	"github.com/Eursukkul/outing-service/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "outing-service",
	Short:         "Outing lifecycle service",
	Long:          "Outing lifecycle service: HTTP API, state sweeps, reminders and notifications.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, sweepCmd, remindersCmd, tokenCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs: configuration, a logger and the database.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	outings repository.OutingRepository
}

func newApp() (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := database.NewPostgresDB(cfg.DSN(), log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		db:      db,
		outings: repository.NewOutingRepository(db),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.logger.Sync()
}
