package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/contractflow/contractflow/internal/adapter/persistence"
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/infra/password"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	adminName := flag.String("admin", getenvDefault("SEED_ADMIN_USERNAME", "admin"), "initial administrator username")
	adminPassword := flag.String("password", getenvDefault("SEED_ADMIN_PASSWORD", "admin123"), "initial administrator password")
	file := flag.String("file", os.Getenv("SEED_FILE"), "optional YAML file with extra actors")
	flag.Parse()

	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	s := &seeder{
		repo:      persistence.NewPostgresActorRepository(db),
		passwords: password.NewBcryptPasswordService(cfg.Security.BcryptCost),
	}

	entries := []seedActor{{Username: *adminName, Password: *adminPassword, Role: "administrator"}}
	if *file != "" {
		extra, err := loadSeedFile(*file)
		if err != nil {
			log.Fatalf("%v", err)
		}
		entries = append(entries, extra...)
	}

	for _, entry := range entries {
		created, err := s.ensureActor(ctx, entry)
		if err != nil {
			log.Fatalf("failed to seed user %q: %v", entry.Username, err)
		}
		if created {
			log.Printf("Seeded user: username=%s role=%s", entry.Username, entry.Role)
		} else {
			log.Printf("User %s already exists, skipped", entry.Username)
		}
	}
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
