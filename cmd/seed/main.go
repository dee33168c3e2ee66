package main

import (
	"context"
	"fmt"
	"os"

	"voice-dialogue-demo/backend/internal/models"
	"voice-dialogue-demo/backend/internal/seed"
	"voice-dialogue-demo/backend/pkg/config"
	"voice-dialogue-demo/backend/pkg/di"
	"voice-dialogue-demo/backend/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Administer global voice profiles, moods and admin accounts",
		SilenceUsage: true,
	}
	cmd.AddCommand(applyCmd(), promoteCmd())
	return cmd
}

func applyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Upsert the global avatars and moods listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := seed.Parse(f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d avatars, %d moods\n", args[0], len(doc.Avatars), len(doc.Moods))
				return nil
			}

			return withSeeder(cmd.Context(), func(s *seed.Seeder) error {
				res, err := s.Apply(cmd.Context(), doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "avatars: %d created, %d updated; moods: %d created, %d updated\n",
					res.AvatarsCreated, res.AvatarsUpdated, res.MoodsCreated, res.MoodsUpdated)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant the admin role to a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSeeder(cmd.Context(), func(s *seed.Seeder) error {
				user, err := s.PromoteAdmin(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", user.Email)
				return nil
			})
		},
	}
}

func withSeeder(ctx context.Context, fn func(*seed.Seeder) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)

	db, err := config.NewDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	container, err := di.New(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(seed.NewSeeder(db, container.AvatarService, container.MoodService, container.UserService, log))
}
