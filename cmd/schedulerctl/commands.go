package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/app"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
	"github.com/noah-isme/school-ops-api/internal/service"
	"github.com/noah-isme/school-ops-api/pkg/config"
	"github.com/noah-isme/school-ops-api/pkg/database"
	"github.com/noah-isme/school-ops-api/pkg/logger"
)

type runner func(ctx context.Context, a *app.App, out io.Writer) error

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulerctl",
		Short:         "Operate the school ops session scheduler against the configured database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSweepCmd(), newReconcileCmd(), newPurgeMonthCmd(), newCreateUserCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, logr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate missing recurring sessions for a reference date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, err := parseDate(date)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				summary, err := a.Scheduler.RunMaintenance(ctx, ref)
				if err != nil {
					return err
				}
				return printJSON(out, summary)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	var classID, month string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fill the missing sessions of one class month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				result, err := a.Scheduler.ReconcileClassMonth(ctx, classID, month)
				if err != nil {
					return err
				}
				return printJSON(out, result)
			})
		},
	}
	cmd.Flags().StringVar(&classID, "class", "", "class id")
	cmd.Flags().StringVar(&month, "month", "", "month YYYY-MM")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newPurgeMonthCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "purge-month",
		Short: "Delete every session of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := scheduling.ParseMonth(month); err != nil {
				return fmt.Errorf("--month must be formatted as YYYY-MM")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				result, err := a.Scheduler.DeleteMonth(ctx, month)
				if err != nil {
					return err
				}
				return printJSON(out, result)
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month YYYY-MM")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	var email, name, role, password string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a login for an administrator, teacher or parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userRole, err := parseRole(role)
			if err != nil {
				return err
			}
			if len(password) < 8 {
				return fmt.Errorf("--password must be at least 8 characters")
			}
			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				user := &models.User{
					ID:           uuid.NewString(),
					Email:        strings.ToLower(strings.TrimSpace(email)),
					FullName:     name,
					Role:         userRole,
					PasswordHash: hash,
					Active:       true,
				}
				if err := a.Users.Create(ctx, user); err != nil {
					return err
				}
				fmt.Fprintf(out, "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN, TEACHER or PARENT")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func withApp(cmd *cobra.Command, run runner) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a, cmd.OutOrStdout())
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	ref, err := time.Parse(scheduling.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be formatted as YYYY-MM-DD")
	}
	return ref, nil
}

func parseRole(raw string) (models.UserRole, error) {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case models.RoleAdmin, models.RoleTeacher, models.RoleParent:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
