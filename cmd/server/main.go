package main

import (
	"context"
	"flag"
	"log"

	"github.com/crateport/crateport/internal/server"
	"github.com/crateport/crateport/internal/server/config"
)

func main() {
	configPath := flag.String("config", "crateport.toml", "path to the registry configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
