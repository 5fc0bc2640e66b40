// The janitor prunes expired sessions from the catalog database. Session
// rows are not removed automatically by the server; operators run this on a
// schedule.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/crateport/crateport/internal/server/config"
	"github.com/crateport/crateport/internal/server/models"
	"github.com/crateport/crateport/internal/server/repositories/repomanager"
)

func main() {
	configPath := flag.String("config", "crateport.toml", "path to the registry configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, repos, err := repomanager.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := repos.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	removed, err := repos.Sessions(db).DeleteExpired(ctx, models.Now())
	if err != nil {
		log.Fatalf("pruning sessions: %v", err)
	}
	log.Printf("removed %d expired sessions", removed)
}
