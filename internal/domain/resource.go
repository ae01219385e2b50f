package domain

// ResourceType names a kind of record guarded by the authorization resolver.
type ResourceType string

const (
	ResourceWorkout        ResourceType = "workout"
	ResourceDiet           ResourceType = "diet"
	ResourceExercise       ResourceType = "exercise"
	ResourceMeal           ResourceType = "meal"
	ResourcePlanType       ResourceType = "plan_type"
	ResourceClient         ResourceType = "client"
	ResourceProfile        ResourceType = "profile"
	ResourceUser           ResourceType = "user"
	ResourceWorkoutHistory ResourceType = "workout_history"
	ResourceDietHistory    ResourceType = "diet_history"
	ResourceExerciseSwap   ResourceType = "exercise_swap"
	ResourceMealSwap       ResourceType = "meal_swap"
)

// Action is an operation on a resource type.
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

var Actions = []Action{ActionList, ActionRetrieve, ActionCreate, ActionUpdate, ActionDelete}

// ResourceTypes lists every guarded resource type.
var ResourceTypes = []ResourceType{
	ResourceWorkout, ResourceDiet, ResourceExercise, ResourceMeal,
	ResourcePlanType, ResourceClient, ResourceProfile, ResourceUser,
	ResourceWorkoutHistory, ResourceDietHistory, ResourceExerciseSwap, ResourceMealSwap,
}

// Domain returns the plan domain a resource type belongs to, if any.
func (r ResourceType) Domain() (PlanDomain, bool) {
	switch r {
	case ResourceWorkout, ResourceExercise, ResourceWorkoutHistory, ResourceExerciseSwap:
		return DomainWorkout, true
	case ResourceDiet, ResourceMeal, ResourceDietHistory, ResourceMealSwap:
		return DomainDiet, true
	}
	return "", false
}
