package main

import (
	"context"
	"os"

	"github.com/DRSN-tech/image-catalog/internal/app"
	config "github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewSlogLogger()

	if err := godotenv.Load(); err != nil {
		log.Debugf(".env not loaded: %v", err)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.NewProcessor(ctx, cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize processor")
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		os.Exit(1)
	}
}
