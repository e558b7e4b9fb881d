// Command seed loads a YAML festival program into the configured
// store.  It is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/festival-ticketing/internal/config"
	"github.com/iliyamo/festival-ticketing/internal/database"
	"github.com/iliyamo/festival-ticketing/internal/logging"
	"github.com/iliyamo/festival-ticketing/internal/repository"
	"github.com/iliyamo/festival-ticketing/internal/seed"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	file := pflag.StringP("file", "f", "program.yaml", "program file to load")
	dryRun := pflag.Bool("dry-run", false, "validate the file without writing")
	pflag.Parse()

	if err := run(*envFile, *file, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(envFile, file string, dryRun bool) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	p, err := seed.Parse(f)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("%s: %d venues, %d events\n", file, len(p.Venues), len(p.Events))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StorageDriver != config.StorageMySQL {
		return errors.New("seeding needs STORAGE_DRIVER=mysql; memory storage does not outlive this process")
	}
	log := logging.New(logging.Config{Service: "festival-seed", Env: cfg.Env, Level: cfg.LogLevel})

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	_, err = seed.Apply(ctx, repository.NewStore(db), p, cfg.BcryptCost, log)
	return err
}
