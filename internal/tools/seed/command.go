package seed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/config"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/database"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/security"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/tools/common"
)

type options struct {
	envFile         string
	superAdminEmail string
	timeout         time.Duration
	ci              bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Reference data and super admin seeding"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.superAdminEmail, "super-admin-email", "", "override the super admin email")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newConfirmEmailCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Insert missing roles, genders, statuses and the super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				return Apply(ctx, db, cfg, security.NewPasswordHasher(security.DefaultArgon2Params))
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would ensure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "dry-run", func(ctx context.Context) ([]string, error) {
				cfg, err := loadConfig(opts)
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, 12)
				for _, line := range database.SeedPlan(cfg) {
					details = append(details, "would ensure "+line)
				}
				return details, nil
			})
		},
	}
}

func newConfirmEmailCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "confirm-email",
		Short: "Mark an account email as confirmed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "confirm-email", func(ctx context.Context) ([]string, error) {
				if strings.TrimSpace(email) == "" {
					return nil, fmt.Errorf("email is required")
				}
				cfg, db, err := loadConfigDB(opts)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if err := database.ConfirmEmail(ctx, db, cfg, email); err != nil {
					return nil, err
				}
				return []string{"confirmed email: " + strings.TrimSpace(strings.ToLower(email))}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to confirm")
	return cmd
}

// Apply runs the idempotent seed and describes what it inserted.
func Apply(ctx context.Context, db *gorm.DB, cfg *config.Config, hasher database.PasswordHasher) ([]string, error) {
	report, err := database.SeedSync(ctx, db, cfg, hasher)
	if err != nil {
		return nil, err
	}
	if report.Noop {
		return []string{"reference data already present, nothing inserted"}, nil
	}
	details := []string{
		fmt.Sprintf("roles inserted: %d", report.CreatedRoles),
		fmt.Sprintf("genders inserted: %d", report.CreatedGenders),
		fmt.Sprintf("statuses inserted: %d", report.CreatedStatuses),
	}
	if report.CreatedAdmin {
		details = append(details, "super admin created: "+cfg.SuperAdminEmail)
	}
	return details, nil
}

func run(opts *options, command string, fn common.Action) error {
	_, err := common.Run(common.RunOptions{Tool: "seed", Command: command, CI: opts.ci, Timeout: opts.timeout}, fn)
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func loadConfig(opts *options) (*config.Config, error) {
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.superAdminEmail != "" {
		cfg.SuperAdminEmail = opts.superAdminEmail
	}
	return cfg, nil
}

func loadConfigDB(opts *options) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
