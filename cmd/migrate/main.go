package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

var (
	cfgFile string
	timeout time.Duration
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Database maintenance for the clinic API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "command timeout")

	cmd.AddCommand(newUpCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(filepath.Dir(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("migrations need the postgres driver, got %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied successfully.")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample doctors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc := doctorService.NewService(
				postgres.NewDoctorRepository(db),
				security.NewBcryptHasher(cfg.Security.BcryptCost),
				doctorService.CacheConfig{},
			)
			created, err := seedDoctors(ctx, svc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d doctor(s).\n", created)
			return nil
		},
	}
}

var sampleDoctors = []model.CreateDoctorRequest{
	{Name: "Dr. Youmna Ali", Specialization: "General Dentistry", Email: "doctor@gmail.com", Password: "Doctor123*"},
	{Name: "Dr. Ahmed Hassan", Specialization: "Orthodontics", Email: "ahmed@clinic.com", Password: "Doctor123*"},
}

type doctorCreator interface {
	Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error)
}

// seedDoctors creates the sample doctors, skipping emails that already exist.
func seedDoctors(ctx context.Context, svc doctorCreator) (int, error) {
	created := 0
	for i := range sampleDoctors {
		req := sampleDoctors[i]
		if _, err := svc.Create(ctx, &req); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("failed to seed %s: %w", req.Name, err)
		}
		created++
	}
	return created, nil
}
