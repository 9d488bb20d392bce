package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/oksasatya/pulse-correction-bot/config"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/jsonfile"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/userstore"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// seed copies a legacy users.json into the store selected by USER_STORE.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()

	var from string
	var dryRun bool
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&from, "from", cfg.UsersFile, "legacy users.json to import")
	flagSet.BoolVar(&dryRun, "dry-run", false, "print the records without writing them")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	users, err := jsonfile.NewUserRepository(from).All(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}
	if dryRun {
		for _, u := range users {
			fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Status)
		}
		return nil
	}
	if cfg.UserStore == "json" && cfg.UsersFile == from {
		return fmt.Errorf("source and target are the same file %s", from)
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	store, err := userstore.Open(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, u := range users {
		patch := entity.PatchFromActor(entity.Actor{ID: u.ID, Username: u.Username, FullName: u.FullName}, u.Status)
		if err := store.Users.Upsert(ctx, u.ID, patch); err != nil {
			return fmt.Errorf("import user %d: %w", u.ID, err)
		}
	}
	fmt.Printf("imported %d users into %s store\n", len(users), cfg.UserStore)
	return nil
}
