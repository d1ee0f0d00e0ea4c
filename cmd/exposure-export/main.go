package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gemfoundation/exposure/internal/adapters/postgres"
	"github.com/gemfoundation/exposure/internal/cli"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/config"
	"github.com/gemfoundation/exposure/internal/pkg/logging"
)

var version = "dev"

func main() {
	cli.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (cli.Exporter, func(), error) {
		cfg, err := config.Load("exposure-export")
		if err != nil {
			return nil, nil, err
		}
		// stdout may carry the export, so logs go to stderr.
		logging.SetupWriter(os.Stderr, cfg.Log.Level, "text")

		db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewExposureRepo(db)
		return usecases.NewExportService(repo, nil, cfg.Export.MaxAreaSqDeg), db.Close, nil
	}

	cli.Execute(ctx, cli.NewRootCommand(open))
}
