package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	authsvc "github.com/KhadijaXD/lostly/internal/app/services/auth"
	"github.com/KhadijaXD/lostly/internal/infra/config"
	mongostore "github.com/KhadijaXD/lostly/internal/infra/db/mongo"
	"github.com/KhadijaXD/lostly/internal/infra/obs"
	"github.com/KhadijaXD/lostly/internal/infra/security"
)

var rootCmd = &cobra.Command{
	Use:           "lostlyctl",
	Short:         "Account administration for the lostly backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// withAuth opens the configured store and hands an auth service to fn.
func withAuth(ctx context.Context, fn func(*authsvc.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UsesMongo() {
		return errors.New("MONGO_URI is required")
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error("mongo disconnect failed", "error", err)
		}
	}()
	users := mongostore.NewUserRepository(client.DB)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}
	return fn(&authsvc.Service{
		Users:     users,
		Passwords: security.BcryptHasher{},
		Tokens:    security.JWTIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL, Issuer: "lostly"},
		Logger:    logger,
	})
}
