package main

import (
	"context"

	"tandem/config"
	"tandem/pkg/logger"
	"tandem/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	pg, err := postgres.New(context.Background(), cfg, log)
	if err != nil {
		panic(err)
	}
	defer pg.Close()

	// Profiles and rides only; the schema itself stays under migrate's control.
	_, err = pg.GetPool().Exec(context.Background(), "TRUNCATE TABLE rides, profiles RESTART IDENTITY")
	if err != nil {
		log.Error("Failed to truncate tables", logger.Error(err))
	} else {
		log.Info("Successfully truncated rides and profiles tables.")
	}
}
