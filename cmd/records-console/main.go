package main

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/records-console/internal/console"
	"github.com/noah-isme/records-console/internal/gateway"
	"github.com/noah-isme/records-console/internal/service"
	"github.com/noah-isme/records-console/pkg/config"
	"github.com/noah-isme/records-console/pkg/logger"
	"github.com/noah-isme/records-console/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	recorder := metrics.NewRecorder()

	backend, err := gateway.New(cfg.Server, logr, recorder)
	if err != nil {
		logr.Sugar().Fatalw("failed to build backend client", "error", err)
	}

	in := bufio.NewReader(os.Stdin)
	confirm := console.Confirm(in, os.Stdout)

	var session *service.SessionService
	roles := service.SessionRoles(func() *service.SessionService { return session })

	students := service.NewStudentDirectoryService(backend, roles, confirm, logr)
	users := service.NewUserDirectoryService(backend, roles, confirm, logr)
	session = service.NewSessionService(backend, students, users, logr)

	editor := service.NewEditBufferService(students, validator.New(), logr)
	chart := service.NewChartService(backend, students, logr)
	exporter := service.NewExportService(students, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ui := console.New(in, os.Stdout, console.Deps{
		Session:  session,
		Students: students,
		Editor:   editor,
		Chart:    chart,
		Users:    users,
		Export:   exporter,
		Metrics:  recorder,
		Config:   cfg,
		Logger:   logr,
	})

	logr.Sugar().Infow("console starting", "server", cfg.Server.URL, "env", cfg.Env)
	if err := ui.Run(ctx); err != nil {
		logr.Sugar().Fatalw("console failed", "error", err)
	}
}
