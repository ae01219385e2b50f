package seed

import (
	"context"
	"strings"
	"testing"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalog = `
plans:
  - name: Standard
    price: 99.9
    duration_days: 90
    refresh_interval_days: 60
    exercise_swap_limit: 2
    meal_swap_limit: 2
    swap_window_days: 7
  - name: Premium
    price: 199.9
    duration_days: 90
    refresh_interval_days: 30
    swap_window_days: 14
    unlimited_swaps: true
`

func TestLoadPlans(t *testing.T) {
	plans, err := LoadPlans(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "Standard", plans[0].Name)
	assert.Equal(t, 60, plans[0].RefreshIntervalDays)
	assert.Equal(t, 2, plans[0].SwapLimit(domain.DomainDiet))
	assert.True(t, plans[1].UnlimitedSwaps)
	assert.Equal(t, 14, plans[1].SwapWindowDays)
}

func TestLoadPlansRejectsBadCatalogs(t *testing.T) {
	tests := map[string]string{
		"unknown key":   "plans:\n  - name: A\n    refresh_days: 3\n",
		"missing name":  "plans:\n  - price: 3\n",
		"duplicate":     "plans:\n  - name: A\n  - name: A\n",
		"negative":      "plans:\n  - name: A\n    swap_window_days: -1\n",
		"not a catalog": "- a\n- b\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPlans(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestSeedPlansIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	log := zap.NewNop().Sugar()
	plans, err := LoadPlans(strings.NewReader(catalog))
	require.NoError(t, err)

	created, err := SeedPlans(ctx, store.PlanTypes, plans, log)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = SeedPlans(ctx, store.PlanTypes, plans, log)
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := store.PlanTypes.List(ctx, repository.AllRows())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
