package main

import (
	"context"
	"flag"
	"log"

	"github.com/otoscore/otoscore/internal/catalog"
	"github.com/otoscore/otoscore/internal/config"
	"github.com/otoscore/otoscore/internal/database"

	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := database.Init(cfg.Storage.Database)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}

	err = catalog.Run(context.Background(), db, catalog.Sources{
		OfficialJSONURL: cfg.Catalog.OfficialJSONURL,
		OverseasCSVURL:  cfg.Catalog.OverseasCSVURL,
	})
	if err != nil {
		zap.S().Fatalf("catalog import failed: %v", err)
	}
	zap.S().Info("catalog import finished")
}
