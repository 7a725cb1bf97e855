// orgsync 把账号目录中的汇报关系同步为 DMS 的组织架构树。
//
// 不带子命令执行时等同于 orgsync resync。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dms_orgsync/internal/service"
	"dms_orgsync/pkg/database"
	"dms_orgsync/pkg/log"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "orgsync:", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "orgsync",
		Short:         "Synchronize the DMS org chart from user accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResync(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file (optional, env vars override)")

	root.AddCommand(
		newResyncCmd(&configPath),
		newChartCmd(&configPath),
		newLinkCmd(&configPath),
		newTreeCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

func newResyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Rebuild the employee tree from active users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResync(cmd.Context(), *configPath)
		},
	}
}

func runResync(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	log.Info("Starting full org resync")
	return a.exclusive(ctx, func() error {
		report, err := a.sync.FullResync()
		if err != nil {
			return fmt.Errorf("full resync: %w", err)
		}
		log.Infof("Resync done: %d deleted, %d created, %d skipped, %d linked, %d roots",
			report.Deleted, report.Created, report.Skipped, report.Linked, report.Roots)
		return nil
	})
}

func newChartCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Create or update seats from a chart file (vacant seats allowed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if file == "" {
				file = a.cfg.Sync.ChartFile
			}
			seats := service.DefaultChartSeats()
			if file != "" {
				if seats, err = service.LoadChartSeats(file); err != nil {
					return err
				}
				log.Infow("Loaded chart file", "file", file, "seats", len(seats))
			} else {
				log.Info("No chart file given, using the default management skeleton")
			}

			return a.exclusive(ctx, func() error {
				report, err := a.sync.BuildChart(seats)
				if err != nil {
					return fmt.Errorf("build chart: %w", err)
				}
				log.Infof("Chart done: %d created, %d updated, %d active, %d vacant",
					report.Created, report.Updated, report.Active, report.Vacant)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML chart file (default: sync.chart_file, then the built-in skeleton)")
	return cmd
}

func newLinkCmd(configPath *string) *cobra.Command {
	opts := service.DefaultLinkOptions()
	var managers string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Add missing employees for one role without touching existing links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts.ManagerPositionCodes = splitCodes(managers)

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return a.exclusive(ctx, func() error {
				report, err := a.sync.LinkRole(opts)
				if err != nil {
					return fmt.Errorf("link role %s: %w", opts.Role, err)
				}
				log.Infof("Link done: %d created, %d updated, %d unchanged, %d skipped",
					report.Created, report.Updated, report.Unchanged, report.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Role, "role", opts.Role, "User role to link")
	cmd.Flags().StringVar(&opts.PositionCode, "position", opts.PositionCode, "Position code for new employees")
	cmd.Flags().StringVar(&managers, "managers", strings.Join(opts.ManagerPositionCodes, ","), "Manager position codes in priority order")
	return cmd
}

func newTreeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the current org chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return a.chart.Render(cmd.OutOrStdout())
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the org_positions and employees tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			// auto_migrate 关闭时 newApp 不会迁移，这里显式执行
			if !a.cfg.Database.AutoMigrate {
				return database.RunMigrate(a.db)
			}
			return nil
		},
	}
}

func splitCodes(raw string) []string {
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		if code := service.NormalizeRole(part); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
