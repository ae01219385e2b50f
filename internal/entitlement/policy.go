// Package entitlement decides whether a client may receive a new workout or
// diet, or swap an exercise or meal, and applies those changes atomically.
package entitlement

import (
	"fmt"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/clock"
	"fittrack/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is the per-client, per-domain entitlement state.
type State string

const (
	StateNoPlan   State = "NoPlan"
	StateEligible State = "Eligible"
	StateActive   State = "Active"
)

// Status is the evaluated entitlement of one client in one domain at one
// instant. It is a pure function of the client, its plan and the clock.
type Status struct {
	Domain domain.PlanDomain `json:"domain"`
	State  State             `json:"state"`
	// PlanExpired is set when the plan's end date lies before today.
	PlanExpired bool `json:"planExpired"`
	// DaysSinceAssignment is nil when the client was never assigned.
	DaysSinceAssignment *int                `json:"daysSinceAssignment,omitempty"`
	LastAssignedAt      *time.Time          `json:"lastAssignedAt,omitempty"`
	CurrentItemID       *primitive.ObjectID `json:"currentItemId,omitempty"`
	SwapWindowOpen      bool                `json:"swapWindowOpen"`
	SwapsRemaining      int                 `json:"swapsRemaining"`
	Unlimited           bool                `json:"unlimitedSwaps"`
}

// Evaluate derives the Status. plan is nil when the client has no plan type
// or the plan type was soft-deleted. Days are civil days in loc.
func Evaluate(client *domain.Client, plan *domain.PlanType, d domain.PlanDomain, now time.Time, loc *time.Location) Status {
	s := Status{
		Domain:         d,
		State:          StateNoPlan,
		LastAssignedAt: client.LastAssignedAt(d),
		CurrentItemID:  client.CurrentItemID(d),
		SwapsRemaining: client.SwapsRemaining(d),
	}
	if plan == nil {
		return s
	}
	s.Unlimited = plan.UnlimitedSwaps

	if client.PlanEndDate != nil && clock.DaysBetween(*client.PlanEndDate, now, loc) > 0 {
		s.PlanExpired = true
	}

	if s.LastAssignedAt == nil {
		s.State = StateEligible
		return s
	}

	days := clock.DaysBetween(*s.LastAssignedAt, now, loc)
	if days < 0 {
		// Assignment stamped "in the future" by a skewed clock counts as today.
		days = 0
	}
	s.DaysSinceAssignment = &days

	if days >= plan.RefreshIntervalDays {
		s.State = StateEligible
		return s
	}
	s.State = StateActive
	s.SwapWindowOpen = days <= plan.SwapWindowDays
	return s
}

// CheckAssign returns nil when a new assignment is permitted, otherwise a
// PolicyRejected *apperr.Error.
func CheckAssign(s Status) error {
	switch {
	case s.State == StateNoPlan:
		return apperr.PolicyRejected(apperr.ReasonNoPlan, "client has no plan type")
	case s.PlanExpired:
		return apperr.PolicyRejected(apperr.ReasonPlanExpired, "client plan has expired")
	case s.State != StateEligible:
		return apperr.PolicyRejected(apperr.ReasonRefreshIntervalNotElapsed,
			fmt.Sprintf("a new %s may be assigned only after the refresh interval (%d days since last assignment)", s.Domain, deref(s.DaysSinceAssignment)))
	}
	return nil
}

// CheckSwap returns nil when a swap is permitted, otherwise a PolicyRejected
// *apperr.Error. The window is checked before the counter.
func CheckSwap(s Status) error {
	switch {
	case s.State == StateNoPlan:
		return apperr.PolicyRejected(apperr.ReasonNoPlan, "client has no plan type")
	case s.PlanExpired:
		return apperr.PolicyRejected(apperr.ReasonPlanExpired, "client plan has expired")
	case s.State != StateActive:
		return apperr.PolicyRejected(apperr.ReasonNoActiveAssignment, fmt.Sprintf("client has no active %s", s.Domain))
	case !s.SwapWindowOpen:
		return apperr.PolicyRejected(apperr.ReasonSwapWindowClosed,
			fmt.Sprintf("swap window closed (%d days since assignment)", deref(s.DaysSinceAssignment)))
	case !s.Unlimited && s.SwapsRemaining <= 0:
		return apperr.PolicyRejected(apperr.ReasonSwapLimitExhausted, fmt.Sprintf("no %s swaps remaining", s.Domain.ItemResource()))
	}
	return nil
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
