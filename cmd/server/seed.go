package main

import (
	"context"
	"fmt"
	"os"

	"fittrack/backend/internal/config"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data into the datastore",
	}

	var file string
	plans := &cobra.Command{
		Use:   "plans",
		Short: "Create the plan types listed in a YAML catalog",
		Long:  `Creates every plan type of the catalog whose name is not already taken. Existing plan types are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.log.Sync() }()
			if rt.cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("seeding the memory datastore has no effect; use serve --seed-plans instead")
			}

			ctx := context.Background()
			store, closeStore, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			return seedPlansFromFile(ctx, store.PlanTypes, file, rt.log.SugaredLogger)
		},
	}
	plans.Flags().StringVarP(&file, "file", "f", "plans.yaml", "Plan catalog to load")

	cmd.AddCommand(plans)
	return cmd
}

func seedPlansFromFile(ctx context.Context, repo repository.PlanTypeRepository, path string, log *zap.SugaredLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open plan catalog: %w", err)
	}
	defer f.Close()

	plans, err := seed.LoadPlans(f)
	if err != nil {
		return err
	}
	created, err := seed.SeedPlans(ctx, repo, plans, log)
	if err != nil {
		return err
	}
	log.Infow("plan catalog seeded", "file", path, "listed", len(plans), "created", created)
	return nil
}
