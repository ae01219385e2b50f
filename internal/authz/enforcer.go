package authz

import (
	"fmt"
	"sync"

	"fittrack/backend/internal/domain"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"
)

// Pseudo subjects used in the policy set besides the four roles.
const (
	// SubjectStaff is held by admin, nutritionist and personal_trainer, and
	// by any principal whose user carries the staff flag.
	SubjectStaff = "staff"
	// SubjectAuthenticated is held by every role.
	SubjectAuthenticated = "authenticated"
	// SubjectOwner grants an action on rows the principal owns.
	SubjectOwner = "owner"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Enforcer wraps a casbin enforcer loaded with the capability matrix.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.SugaredLogger
}

// NewEnforcer builds the enforcer from the embedded model and policy set.
func NewEnforcer(log *zap.SugaredLogger) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, g := range groupings() {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, fmt.Errorf("failed to add grouping [%s, %s]: %w", g[0], g[1], err)
		}
	}
	for _, p := range policies() {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			log.Errorw("failed to add permission policy",
				"error", err,
				"subject", p[0],
				"resource", p[1],
				"action", p[2])
			return nil, fmt.Errorf("failed to add policy [%s, %s, %s]: %w", p[0], p[1], p[2], err)
		}
	}

	log.Debugw("permission policies initialized", "policies", len(policies()))
	return &Enforcer{enforcer: enforcer, logger: log}, nil
}

// Enforce reports whether subject may perform act on obj.
func (e *Enforcer) Enforce(subject string, obj domain.ResourceType, act domain.Action) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(subject, string(obj), string(act))
	if err != nil {
		e.logger.Errorw("permission check failed", "error", err, "subject", subject, "resource", obj, "action", act)
		return false, fmt.Errorf("permission check failed: %w", err)
	}
	return allowed, nil
}

func groupings() [][2]string {
	return [][2]string{
		{string(domain.RoleAdmin), SubjectStaff},
		{string(domain.RoleNutritionist), SubjectStaff},
		{string(domain.RolePersonalTrainer), SubjectStaff},
		{string(domain.RoleAdmin), SubjectAuthenticated},
		{string(domain.RoleNutritionist), SubjectAuthenticated},
		{string(domain.RolePersonalTrainer), SubjectAuthenticated},
		{string(domain.RoleClient), SubjectAuthenticated},
	}
}

// policies is the role capability matrix as (subject, resource, action) rows.
func policies() [][3]string {
	admin := string(domain.RoleAdmin)
	trainer := string(domain.RolePersonalTrainer)
	nutritionist := string(domain.RoleNutritionist)
	client := string(domain.RoleClient)

	var rows [][3]string
	grant := func(rt domain.ResourceType, act domain.Action, subjects ...string) {
		for _, s := range subjects {
			rows = append(rows, [3]string{s, string(rt), string(act)})
		}
	}

	// Plan content: readable by everyone, written by the domain professional.
	planContent := []struct {
		rt           domain.ResourceType
		professional string
	}{
		{domain.ResourceWorkout, trainer},
		{domain.ResourceExercise, trainer},
		{domain.ResourceDiet, nutritionist},
		{domain.ResourceMeal, nutritionist},
	}
	for _, pc := range planContent {
		grant(pc.rt, domain.ActionList, SubjectAuthenticated)
		grant(pc.rt, domain.ActionRetrieve, SubjectAuthenticated)
		grant(pc.rt, domain.ActionCreate, admin, pc.professional)
		grant(pc.rt, domain.ActionUpdate, admin, pc.professional)
		grant(pc.rt, domain.ActionDelete, admin)
	}

	grant(domain.ResourcePlanType, domain.ActionList, SubjectAuthenticated)
	grant(domain.ResourcePlanType, domain.ActionRetrieve, SubjectAuthenticated)
	grant(domain.ResourcePlanType, domain.ActionCreate, admin)
	grant(domain.ResourcePlanType, domain.ActionUpdate, admin)
	grant(domain.ResourcePlanType, domain.ActionDelete, admin)

	for _, rt := range []domain.ResourceType{domain.ResourceClient, domain.ResourceProfile} {
		grant(rt, domain.ActionList, admin, nutritionist, trainer)
		grant(rt, domain.ActionRetrieve, SubjectOwner, SubjectStaff)
		grant(rt, domain.ActionCreate, admin)
		grant(rt, domain.ActionUpdate, SubjectOwner, SubjectStaff)
		grant(rt, domain.ActionDelete, admin)
	}

	for _, rt := range []domain.ResourceType{domain.ResourceExerciseSwap, domain.ResourceMealSwap} {
		grant(rt, domain.ActionList, SubjectOwner, SubjectStaff)
		grant(rt, domain.ActionRetrieve, SubjectOwner, SubjectStaff)
		grant(rt, domain.ActionCreate, client)
		grant(rt, domain.ActionUpdate, admin)
		grant(rt, domain.ActionDelete, admin)
	}

	history := []struct {
		rt           domain.ResourceType
		professional string
	}{
		{domain.ResourceWorkoutHistory, trainer},
		{domain.ResourceDietHistory, nutritionist},
	}
	for _, h := range history {
		grant(h.rt, domain.ActionList, SubjectOwner, SubjectStaff)
		grant(h.rt, domain.ActionRetrieve, SubjectOwner, SubjectStaff)
		grant(h.rt, domain.ActionCreate, admin, h.professional)
		grant(h.rt, domain.ActionDelete, admin)
	}

	grant(domain.ResourceUser, domain.ActionList, admin)
	grant(domain.ResourceUser, domain.ActionRetrieve, SubjectOwner, SubjectStaff)
	grant(domain.ResourceUser, domain.ActionCreate, admin)
	grant(domain.ResourceUser, domain.ActionUpdate, SubjectOwner, SubjectStaff)
	grant(domain.ResourceUser, domain.ActionDelete, admin)

	return rows
}
