package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"busline/internal/ledger"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/shared/middleware"
	"busline/internal/users"
	"busline/pkg/logger"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	jsonOutput bool
	timeout    time.Duration
)

// errDrift makes the process exit non-zero when the audit finds drift
var errDrift = errors.New("seat ledger drift detected")

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Inspect and audit the seat ledger",
	Long: `ledgerctl reads the seat ledger straight from PostgreSQL.

For every trip the remaining capacity must equal capacity minus the seats held
by confirmed and completed tickets. audit reports every trip that breaks this.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database timeout")
	rootCmd.AddCommand(auditCmd(), positionsCmd(), balanceCmd(), tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every trip's counter against its tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, log *logger.Logger) error {
				report, err := ledger.NewAuditor(ledger.NewGormPositions(db), log).Run(ctx)
				if err != nil {
					return err
				}
				if err := writeReport(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Healthy() {
					return errDrift
				}
				return nil
			})
		},
	}
}

func positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List capacity, remaining and held seats for every trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, _ *logger.Logger) error {
				positions, err := ledger.NewGormPositions(db).Positions(ctx)
				if err != nil {
					return err
				}
				return writePositions(cmd.OutOrStdout(), positions)
			})
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <trip-id>",
		Short: "Show one trip's seat account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tripID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid trip id: %w", err)
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, _ *logger.Logger) error {
				b, err := ledger.NewGormLedger(db).Balance(ctx, tripID)
				if err != nil {
					return err
				}
				return writeBalance(cmd.OutOrStdout(), b)
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			if !users.IsValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg := config.Load()
			if cfg.IsProduction() {
				return errors.New("refusing to mint tokens in release mode")
			}
			token, err := middleware.IssueAccessToken(cfg.JWT.Secret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(users.RoleRider), "RIDER, SUPERVISOR or OWNER")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func withDB(parent context.Context, fn func(ctx context.Context, db *gorm.DB, log *logger.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cfg := config.Load()
	log := logger.NewWithOptions(logger.Options{Level: "warn", File: cfg.LogFile})
	db, err := database.OpenPostgreSQL(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	return fn(ctx, db, log)
}

func writeReport(w io.Writer, report *ledger.AuditReport) error {
	if jsonOutput {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "checked %d trips at %s\n", report.Trips, report.CheckedAt.Format(time.RFC3339))
	if report.Healthy() {
		fmt.Fprintln(w, "all trips balance")
		return nil
	}
	return writePositions(w, report.Drifts)
}

func writePositions(w io.Writer, positions []ledger.Position) error {
	if jsonOutput {
		return writeJSON(w, positions)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Trip", "Capacity", "Remaining", "Held", "Drift"})
	for _, p := range positions {
		tw.AppendRow(table.Row{p.TripID, p.Capacity, p.Remaining, p.Held, p.Drift()})
	}
	tw.AppendFooter(table.Row{"", "", "", "trips", len(positions)})
	tw.Render()
	return nil
}

func writeBalance(w io.Writer, b ledger.Balance) error {
	if jsonOutput {
		return writeJSON(w, b)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Trip", "Capacity", "Remaining", "Held"})
	tw.AppendRow(table.Row{b.TripID, b.Capacity, b.Remaining, b.Held()})
	tw.Render()
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
