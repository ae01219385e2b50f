// internal/domain/plan_type.go
package domain

// PlanType is a subscription tier and carries the entitlement parameters
// that gate assignments and swaps for its clients.
type PlanType struct {
	Base         `bson:",inline"`
	Name         string  `bson:"name" json:"name" validate:"required,max=100"`
	Description  string  `bson:"description,omitempty" json:"description,omitempty"`
	Price        float64 `bson:"price" json:"price" validate:"gte=0"`
	DurationDays int     `bson:"durationDays" json:"durationDays" validate:"gte=0"`

	// --- Entitlement policy ---
	RefreshIntervalDays int  `bson:"refreshIntervalDays" json:"refreshIntervalDays" validate:"gte=0"` // How often workout/diet may be reassigned
	ExerciseSwapLimit   int  `bson:"exerciseSwapLimit" json:"exerciseSwapLimit" validate:"gte=0"`
	MealSwapLimit       int  `bson:"mealSwapLimit" json:"mealSwapLimit" validate:"gte=0"`
	SwapWindowDays      int  `bson:"swapWindowDays" json:"swapWindowDays" validate:"gte=0"` // Days after assignment during which swaps are allowed
	UnlimitedSwaps      bool `bson:"unlimitedSwaps" json:"unlimitedSwaps"`
}

// SwapLimit returns the configured swap allowance for a plan domain.
func (p *PlanType) SwapLimit(d PlanDomain) int {
	if d == DomainDiet {
		return p.MealSwapLimit
	}
	return p.ExerciseSwapLimit
}
