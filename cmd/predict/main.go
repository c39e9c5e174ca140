package main

import (
	"log"

	"go.uber.org/zap"

	"batchpredict/config"
	"batchpredict/db"
	"batchpredict/logging"
	"batchpredict/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Prediction run failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	var opts []pipeline.RunnerOption
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, pipeline.WithHistory(store))
	}

	runner, err := pipeline.NewRunner(cfg, logger, opts...)
	if err != nil {
		return err
	}
	_, err = runner.Run()
	return err
}
