package domain

// PlanDomain separates the two independently tracked plan kinds.
type PlanDomain string

const (
	DomainWorkout PlanDomain = "workout"
	DomainDiet    PlanDomain = "diet"
)

func (d PlanDomain) Valid() bool {
	return d == DomainWorkout || d == DomainDiet
}

// ItemResource is the resource type of the items a plan of this domain owns
// (exercises for workouts, meals for diets).
func (d PlanDomain) ItemResource() ResourceType {
	if d == DomainDiet {
		return ResourceMeal
	}
	return ResourceExercise
}

// PlanResource is the resource type of the plan itself.
func (d PlanDomain) PlanResource() ResourceType {
	if d == DomainDiet {
		return ResourceDiet
	}
	return ResourceWorkout
}

// HistoryResource is the resource type of assignment records of this domain.
func (d PlanDomain) HistoryResource() ResourceType {
	if d == DomainDiet {
		return ResourceDietHistory
	}
	return ResourceWorkoutHistory
}

// SwapResource is the resource type of swap requests of this domain.
func (d PlanDomain) SwapResource() ResourceType {
	if d == DomainDiet {
		return ResourceMealSwap
	}
	return ResourceExerciseSwap
}
