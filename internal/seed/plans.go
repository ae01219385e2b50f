// Package seed loads plan type catalogs from YAML files.
package seed

import (
	"context"
	"fmt"
	"io"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PlanFile is the layout of a plans.yaml catalog.
type PlanFile struct {
	Plans []Plan `yaml:"plans"`
}

type Plan struct {
	Name                string  `yaml:"name"`
	Description         string  `yaml:"description"`
	Price               float64 `yaml:"price"`
	DurationDays        int     `yaml:"duration_days"`
	RefreshIntervalDays int     `yaml:"refresh_interval_days"`
	ExerciseSwapLimit   int     `yaml:"exercise_swap_limit"`
	MealSwapLimit       int     `yaml:"meal_swap_limit"`
	SwapWindowDays      int     `yaml:"swap_window_days"`
	UnlimitedSwaps      bool    `yaml:"unlimited_swaps"`
}

func (p Plan) toDomain() domain.PlanType {
	return domain.PlanType{
		Name:                p.Name,
		Description:         p.Description,
		Price:               p.Price,
		DurationDays:        p.DurationDays,
		RefreshIntervalDays: p.RefreshIntervalDays,
		ExerciseSwapLimit:   p.ExerciseSwapLimit,
		MealSwapLimit:       p.MealSwapLimit,
		SwapWindowDays:      p.SwapWindowDays,
		UnlimitedSwaps:      p.UnlimitedSwaps,
	}
}

// LoadPlans decodes a catalog. Unknown keys are rejected.
func LoadPlans(r io.Reader) ([]domain.PlanType, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file PlanFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Plans))
	plans := make([]domain.PlanType, 0, len(file.Plans))
	for i, p := range file.Plans {
		if p.Name == "" {
			return nil, fmt.Errorf("plan %d: name is required", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("plan %q is listed twice", p.Name)
		}
		if p.Price < 0 || p.DurationDays < 0 || p.RefreshIntervalDays < 0 ||
			p.ExerciseSwapLimit < 0 || p.MealSwapLimit < 0 || p.SwapWindowDays < 0 {
			return nil, fmt.Errorf("plan %q: numeric settings must not be negative", p.Name)
		}
		seen[p.Name] = true
		plans = append(plans, p.toDomain())
	}
	return plans, nil
}

// SeedPlans creates the plans whose name is not taken by a live plan type.
// Existing plans are left untouched. It returns how many were created.
func SeedPlans(ctx context.Context, repo repository.PlanTypeRepository, plans []domain.PlanType, log *zap.SugaredLogger) (int, error) {
	existing, err := repo.List(ctx, repository.AllRows())
	if err != nil {
		return 0, fmt.Errorf("list plan types: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.Name] = true
	}

	created := 0
	for i := range plans {
		plan := plans[i]
		if taken[plan.Name] {
			log.Infow("plan type already exists, skipping", "name", plan.Name)
			continue
		}
		id, err := repo.Create(ctx, &plan)
		if err != nil {
			return created, fmt.Errorf("create plan type %q: %w", plan.Name, err)
		}
		log.Infow("plan type created", "name", plan.Name, "id", id.Hex())
		created++
	}
	return created, nil
}
