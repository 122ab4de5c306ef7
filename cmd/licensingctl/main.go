// Package main provides the licensing engine admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/config"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/database"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/services"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/templates"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "licensingctl",
		Short:         "Administer the licensing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(expireSweepCmd())
	cmd.AddCommand(templatesCmd())
	cmd.AddCommand(splitCmd())
	cmd.AddCommand(tokenCmd())

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer database.Close(db, logger)

			return database.RunMigrations(db, logger)
		},
	}
}

func expireSweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "expire-sweep",
		Short: "Expire open negotiations past their deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer database.Close(db, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			negotiations := services.NewNegotiationService(repository.NewGormStore(db), cfg.Licensing, utils.SystemClock{}, logger)
			expired, err := negotiations.ExpireStale(ctx, limit)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "expired %d negotiation(s)\n", expired)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum number of negotiations to expire")
	return cmd
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect license workflow templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a templates file, or the bundled defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}

			registry, err := templates.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, category := range registry.Categories() {
				tmpl, err := registry.ForCategory(category)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-14s %d steps, %d milestones\n", category, len(tmpl.Steps), len(tmpl.Milestones))
			}
			return nil
		},
	})

	return cmd
}

func splitCmd() *cobra.Command {
	var (
		gross  string
		fee    string
		writer string
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Compute a revenue split offline",
		Long: `Compute how a gross revenue amount divides between platform, writer and
studio without touching the database.

Examples:
  licensingctl split --gross 45678.90
  licensingctl split --gross 1000 --fee 10 --writer 70
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amounts := make([]decimal.Decimal, 0, 3)
			for _, raw := range []string{gross, fee, writer} {
				d, err := decimal.NewFromString(raw)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", raw, err)
				}
				amounts = append(amounts, d)
			}

			split, err := services.ComputeDistribution(amounts[0], amounts[1], amounts[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gross         %s\n", split.Gross.StringFixed(utils.MoneyPlaces))
			fmt.Fprintf(out, "platform fee  %s\n", split.PlatformFee.StringFixed(utils.MoneyPlaces))
			fmt.Fprintf(out, "writer share  %s\n", split.WriterShare.StringFixed(utils.MoneyPlaces))
			fmt.Fprintf(out, "studio share  %s\n", split.StudioShare.StringFixed(utils.MoneyPlaces))
			return nil
		},
	}

	defaults := config.DefaultLicensing()
	cmd.Flags().StringVar(&gross, "gross", "", "Gross revenue amount")
	cmd.Flags().StringVar(&fee, "fee", defaults.PlatformFeePercent.String(), "Platform fee percent")
	cmd.Flags().StringVar(&writer, "writer", defaults.DefaultWriterSharePercent.String(), "Writer share percent of net")
	cmd.MarkFlagRequired("gross")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		actor string
		role  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an actor token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			utils.SetJWTSecret(cfg.JWT.SecretKey)
			utils.SetJWTIssuer(cfg.JWT.Issuer)

			token, err := utils.GenerateActorToken(actor, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Actor id to embed in the token")
	cmd.Flags().StringVar(&role, "role", "", "Optional actor role")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.MarkFlagRequired("actor")

	return cmd
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, utils.NewLogger(cfg.LogLevel, cfg.Environment), nil
}
