// Package main provides the seed tool: it imports catalog fixtures into the
// configured store and mints development access tokens.
//
// Usage:
//
//	go run ./cmd/seed import catalog.yaml --store badger --data-path ./data
//	go run ./cmd/seed token --user 3f1c8a52-5b7e-4a4e-9a59-7d2e0f6a1c11 --ttl 24h
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowyournotes/catalog-server/internal/auth"
	"github.com/knowyournotes/catalog-server/internal/config"
	"github.com/knowyournotes/catalog-server/internal/di/providers"
	"github.com/knowyournotes/catalog-server/internal/id"
	"github.com/knowyournotes/catalog-server/internal/logger"
	"github.com/knowyournotes/catalog-server/internal/seed"
	"github.com/knowyournotes/catalog-server/internal/service"
	"github.com/knowyournotes/catalog-server/internal/validation"
)

// storeFlags are forwarded to the server's config loader so the seed tool
// resolves the store exactly as the server does.
type storeFlags struct {
	envFile  string
	backend  string
	dataPath string
	logLevel string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "Path to .env file")
	cmd.PersistentFlags().StringVar(&f.backend, "store", "", "Store backend (sqlite, badger, postgrest)")
	cmd.PersistentFlags().StringVar(&f.dataPath, "data-path", "", "Directory for embedded stores")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func (f *storeFlags) load() (*config.Config, error) {
	args := []string{"-env-file", f.envFile}
	if f.backend != "" {
		args = append(args, "-store", f.backend)
	}
	if f.dataPath != "" {
		args = append(args, "-data-path", f.dataPath)
	}
	if f.logLevel != "" {
		args = append(args, "-log-level", f.logLevel)
	}
	return config.Load(args)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Catalog seeding and development tools",
		SilenceUsage: true,
	}
	flags.register(cmd)

	cmd.AddCommand(importCmd(flags), tokenCmd(flags))
	return cmd
}

func importCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Import brands, notes, fragrances and profiles from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := flags.load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{
				Writer:      os.Stderr,
				Level:       logger.ParseLevel(cfg.Logger.Level),
				Environment: cfg.App.Environment,
			})

			client, err := providers.OpenStore(cfg.Store, log)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			seedLog := log.WithComponent("seed")
			profiles := service.NewProfileService(client, validation.New(), seedLog)
			sum, err := seed.NewImporter(client, profiles, seedLog).Import(ctx, fixture)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}
}

func tokenCmd(flags *storeFlags) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if !cfg.IsDevelopment() {
				return fmt.Errorf("token minting is only available in development")
			}

			if userID == "" {
				if userID, err = id.NewUserID(); err != nil {
					return err
				}
			} else if !id.IsUserID(userID) {
				return fmt.Errorf("user id %q is not a UUID", userID)
			}

			keyHex := cfg.Auth.TokenKey
			if keyHex == "" {
				if keyHex, err = auth.LoadOrGenerateKeyHex(cfg.Store.DataPath); err != nil {
					return err
				}
			}

			tokens, err := auth.NewTokenService(keyHex, cfg.Auth.Issuer, cfg.Auth.Audience)
			if err != nil {
				return err
			}
			token, err := tokens.IssueToken(userID, email, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "user %s, expires in %s\n", userID, ttl)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to embed (default: a new UUID)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
