package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	_ "featurepull/blob/local"
	_ "featurepull/blob/minio"
	"featurepull/internal/config"
	"featurepull/internal/engine"
	"featurepull/internal/logging"
	_ "featurepull/sink/kafka"
	_ "featurepull/sink/stdout"
)

func main() {
	logging.InitFromEnv()

	app := &cli.App{
		Name:  "featurepull",
		Usage: "provision a feature store working directory and write a training set as CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output_csv_path_file",
				Usage:    "where to write the training set (no header, no index)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "job file",
				Value: "featurepull.yml",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logging.L().Error("featurepull failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	e, err := engine.Bootstrap(c.Context, engine.Config{
		JobFile:     c.String("config"),
		OutputCSV:   c.String("output_csv_path_file"),
		Credentials: creds,
	})
	if err != nil {
		return err
	}

	runErr := e.Run(c.Context)
	if err := e.Close(context.WithoutCancel(c.Context)); err != nil {
		logging.L().Warn("engine close", "err", err)
	}
	return runErr
}
