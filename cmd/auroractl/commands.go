package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/config"
	"aurora-dashboard/internal/reporting"
)

var errTenantRequired = errors.New("--tenant is required")

func tenantFlag(cmd *cobra.Command) (string, error) {
	tid, _ := cmd.Flags().GetString("tenant")
	if tid = strings.TrimSpace(tid); tid == "" {
		return "", errTenantRequired
	}
	return tid, nil
}

// runTenant is the shape shared by the read-only commands: resolve tenant, run, print JSON.
func runTenant(fn func(ctx context.Context, cmd *cobra.Command, tid string, b *backend) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		tid, err := tenantFlag(cmd)
		if err != nil {
			return err
		}
		return withBackend(cmd.Context(), func(ctx context.Context, _ config.Config, b *backend) error {
			out, err := fn(ctx, cmd, tid, b)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	}
}

// --- analytics ---

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize calls over a window",
	Long: `Summarize calls over a window.

Examples:
  auroractl analytics --tenant t1
  auroractl analytics --tenant t1 --window month`,
	RunE: runTenant(func(ctx context.Context, cmd *cobra.Command, tid string, b *backend) (any, error) {
		raw, _ := cmd.Flags().GetString("window")
		w, err := analytics.ParseWindow(raw)
		if err != nil {
			return nil, err
		}
		return b.engine.CalculateAnalytics(ctx, tid, w)
	}),
}

var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show response, resolution and availability metrics",
	RunE: runTenant(func(ctx context.Context, _ *cobra.Command, tid string, b *backend) (any, error) {
		return b.engine.CalculatePerformanceMetrics(ctx, tid)
	}),
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast volume and capacity",
	RunE: runTenant(func(ctx context.Context, _ *cobra.Command, tid string, b *backend) (any, error) {
		return b.engine.CalculatePredictiveAnalytics(ctx, tid)
	}),
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Analyze hourly, weekly and per-type call patterns",
	RunE: runTenant(func(ctx context.Context, cmd *cobra.Command, tid string, b *backend) (any, error) {
		raw, _ := cmd.Flags().GetString("window")
		return b.tools.AnalyzeCallPatterns(ctx, tid, analytics.Window(raw))
	}),
}

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Score call data quality",
	RunE: runTenant(func(ctx context.Context, _ *cobra.Command, tid string, b *backend) (any, error) {
		return b.tools.ValidateDataQuality(ctx, tid)
	}),
}

func init() {
	analyticsCmd.Flags().String("window", "week", "day, week, month, quarter or year")
	patternsCmd.Flags().String("window", "week", "day, week, month, quarter or year")
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export calls as csv, json or xlsx",
	Long: `Export calls as csv, json or xlsx.

Examples:
  auroractl export --tenant t1 --format csv --from 2024-01-01 --to 2024-01-31 --out jan.csv
  auroractl export --tenant t1 --format xlsx --interactions --outcomes --out calls.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := tenantFlag(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		statuses, _ := cmd.Flags().GetStringSlice("status")
		types, _ := cmd.Flags().GetStringSlice("type")
		withInteractions, _ := cmd.Flags().GetBool("interactions")
		withOutcomes, _ := cmd.Flags().GetBool("outcomes")
		outPath, _ := cmd.Flags().GetString("out")

		return withBackend(cmd.Context(), func(ctx context.Context, cfg config.Config, b *backend) error {
			opts := reporting.ExportOptions{
				Format:              reporting.ExportFormat(strings.ToLower(format)),
				IncludeInteractions: withInteractions,
				IncludeOutcomes:     withOutcomes,
				CallTypes:           types,
			}
			for _, s := range statuses {
				opts.Statuses = append(opts.Statuses, calls.Status(s))
			}
			if opts.From, err = parseDay(fromStr, cfg.Location(), false); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if opts.To, err = parseDay(toStr, cfg.Location(), true); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			res, err := b.tools.Export(ctx, tid, opts)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = res.Filename
			}
			if outPath == "-" {
				_, err = cmd.OutOrStdout().Write(res.Body)
				return err
			}
			if err := os.WriteFile(outPath, res.Body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d calls to %s\n", res.Records, outPath)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "csv, json or xlsx")
	exportCmd.Flags().String("from", "", "first day (YYYY-MM-DD), inclusive")
	exportCmd.Flags().String("to", "", "last day (YYYY-MM-DD), inclusive")
	exportCmd.Flags().StringSlice("status", nil, "only these statuses")
	exportCmd.Flags().StringSlice("type", nil, "only these call types")
	exportCmd.Flags().Bool("interactions", false, "include interactions")
	exportCmd.Flags().Bool("outcomes", false, "include outcomes")
	exportCmd.Flags().String("out", "", "output path, - for stdout (default: generated filename)")
}

// parseDay reads a local date. An upper bound covers the whole day. Empty is an open bound.
func parseDay(v string, loc *time.Location, upper bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD")
	}
	if upper {
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return d, nil
}

// --- rollup ---

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Recompute daily, hourly and weekly rollups",
	Long: `Recompute daily, hourly and weekly rollups for a range of local days.

Examples:
  auroractl rollup --tenant t1 --from 2024-01-01 --to 2024-01-31
  auroractl rollup --tenant t1 --yesterday`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := tenantFlag(cmd)
		if err != nil {
			return err
		}
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		yesterday, _ := cmd.Flags().GetBool("yesterday")
		if !yesterday && fromStr == "" {
			return errors.New("one of --from or --yesterday is required")
		}

		return withBackend(cmd.Context(), func(ctx context.Context, cfg config.Config, b *backend) error {
			loc := cfg.Location()
			var from, to time.Time
			if yesterday {
				from = analytics.DateKey(time.Now(), loc).AddDate(0, 0, -1)
				to = from
			} else {
				if from, err = parseDay(fromStr, loc, false); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				to = from
				if toStr != "" {
					if to, err = parseDay(toStr, loc, false); err != nil {
						return fmt.Errorf("--to: %w", err)
					}
				}
			}
			res, err := b.rollups.RecomputeRange(ctx, tid, from, to)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	rollupCmd.Flags().String("from", "", "first local day (YYYY-MM-DD)")
	rollupCmd.Flags().String("to", "", "last local day (YYYY-MM-DD), defaults to --from")
	rollupCmd.Flags().Bool("yesterday", false, "recompute yesterday only")
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for local testing",
	Long: `Mint an HS256 access token signed with JWT_SECRET.

Example:
  auroractl token --tenant t1 --user ops --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := tenantFlag(cmd)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return err
		}
		tok, err := m.IssueAccess(time.Now(), user, tid, role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "operator", "subject (user id)")
	tokenCmd.Flags().String("role", "viewer", "owner, admin, member, viewer or super_admin")
}
