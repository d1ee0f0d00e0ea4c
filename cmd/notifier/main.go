package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/gemfoundation/exposure/internal/adapters/nats"
	"github.com/gemfoundation/exposure/internal/adapters/postgres"
	"github.com/gemfoundation/exposure/internal/adapters/smtp"
	"github.com/gemfoundation/exposure/internal/core/domain"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/config"
	"github.com/gemfoundation/exposure/internal/pkg/logging"
	"github.com/gemfoundation/exposure/internal/workflows"
)

func main() {
	cfg, err := config.Load("exposure-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Status events are best effort; the websocket relay picks them up.
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats publisher unavailable, status events disabled", "error", err)
	} else {
		events = publisher
		defer publisher.Close()
	}

	calcRepo := postgres.NewCalculationRepo(db)
	mailer := smtp.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	calcSvc := usecases.NewCalculationService(calcRepo, events)
	notifySvc := usecases.NewNotificationService(calcRepo, mailer, calcSvc)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ArtifactNotificationWorkflow)
	w.RegisterActivity(&workflows.ArtifactActivities{Notifications: notifySvc})

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	// Process requests from the API become workflow executions.
	var starter ports.WorkflowStarter = workflows.NewStarter(c, cfg.Temporal.TaskQueue)
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeCalculationProcess(ctx, func(ctx context.Context, event *domain.CalculationEvent) error {
		slog.InfoContext(ctx, "starting artifact notification", "calculation_id", event.CalculationID)
		return starter.StartArtifactNotification(ctx, event.CalculationID)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("notifier started", "task_queue", cfg.Temporal.TaskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("notifier stopping", "signal", sig.String())
}
