package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/clock"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/history"
	"fittrack/backend/internal/metrics"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultMaxConflictRetries bounds the re-runs of an assign or swap after a
// lost optimistic concurrency race.
const DefaultMaxConflictRetries = 3

// Target names the workout or diet to assign.
type Target struct {
	Domain domain.PlanDomain  `json:"domain" binding:"required,oneof=workout diet"`
	ItemID primitive.ObjectID `json:"itemId" binding:"required"`
	Notes  string             `json:"notes" binding:"max=500"`
}

// AssignResult is the committed outcome of Assign.
type AssignResult struct {
	Record *domain.AssignmentRecord `json:"record"`
	Client *domain.Client           `json:"client"`
	Status Status                   `json:"status"`
}

// SwapInput describes one exercise or meal replacement.
type SwapInput struct {
	Domain    domain.PlanDomain  `json:"domain" binding:"required,oneof=workout diet"`
	OldItemID primitive.ObjectID `json:"oldItemId" binding:"required"`
	NewItemID primitive.ObjectID `json:"newItemId" binding:"required"`
	Reason    string             `json:"reason" binding:"required,max=500"`
}

// Config tunes the engine.
type Config struct {
	Location           *time.Location
	MaxConflictRetries int
}

// Engine owns every mutation of the entitlement counters.
type Engine struct {
	store      *repository.Store
	recorder   *history.Recorder
	clock      clock.Clock
	loc        *time.Location
	maxRetries int
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger
}

func NewEngine(store *repository.Store, recorder *history.Recorder, clk clock.Clock, cfg Config, m *metrics.Metrics, log *zap.SugaredLogger) *Engine {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	retries := cfg.MaxConflictRetries
	if retries < 0 {
		retries = DefaultMaxConflictRetries
	}
	return &Engine{
		store:      store,
		recorder:   recorder,
		clock:      clk,
		loc:        loc,
		maxRetries: retries,
		metrics:    m,
		log:        log,
	}
}

// Status evaluates the client's entitlement in one domain without changing
// anything.
func (e *Engine) Status(ctx context.Context, clientID primitive.ObjectID, d domain.PlanDomain) (Status, error) {
	if !d.Valid() {
		return Status{}, apperr.Validation(fmt.Sprintf("unknown plan domain %q", d))
	}
	client, err := e.loadClient(ctx, clientID)
	if err != nil {
		return Status{}, err
	}
	plan, err := e.loadPlan(ctx, client)
	if err != nil {
		return Status{}, err
	}
	return Evaluate(client, plan, d, e.clock.Now(), e.loc), nil
}

// Assign gives the client a new workout or diet: it stamps the client,
// resets the swap counter to the plan limit, links the item to the client and
// writes an AssignmentRecord, all in one transaction.
func (e *Engine) Assign(ctx context.Context, clientID primitive.ObjectID, target Target, assignedBy primitive.ObjectID) (*AssignResult, error) {
	if !target.Domain.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown plan domain %q", target.Domain))
	}

	var result *AssignResult
	err := e.withRetry(ctx, "assign", func(ctx context.Context) error {
		var err error
		result, err = e.assignOnce(ctx, clientID, target, assignedBy)
		return err
	})

	e.metrics.Assignment(string(target.Domain), outcome(err))
	if err != nil {
		return nil, err
	}

	e.log.Infow("plan item assigned",
		"domain", target.Domain,
		"client_id", clientID.Hex(),
		"item_id", target.ItemID.Hex(),
		"assigned_by", assignedBy.Hex(),
		"swaps_remaining", result.Client.SwapsRemaining(target.Domain))

	e.recorder.Archive(ctx, result.Record)
	return result, nil
}

func (e *Engine) assignOnce(ctx context.Context, clientID primitive.ObjectID, target Target, assignedBy primitive.ObjectID) (*AssignResult, error) {
	d := target.Domain

	client, err := e.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	plan, err := e.loadPlan(ctx, client)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if err := CheckAssign(Evaluate(client, plan, d, now, e.loc)); err != nil {
		return nil, err
	}

	item, err := e.store.PlanItem(ctx, d, target.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("%s not found", d))
		}
		return nil, fmt.Errorf("load %s: %w", d, err)
	}
	if owner := item.AssignedClient(); owner != nil && *owner != clientID {
		return nil, apperr.Validation(fmt.Sprintf("%s is already assigned to another client", d))
	}

	var remaining *int
	if !plan.UnlimitedSwaps {
		limit := plan.SwapLimit(d)
		remaining = &limit
	}

	record, err := e.recorder.RecordAssignment(ctx, history.Assignment{
		Domain:                 d,
		ClientID:               clientID,
		ItemID:                 target.ItemID,
		AssignedAt:             now,
		AssignedBy:             assignedBy,
		Notes:                  target.Notes,
		ExpectedLastAssignedAt: client.LastAssignedAt(d),
		SwapsRemaining:         remaining,
	})
	if err != nil {
		return nil, err
	}

	if err := e.store.AssignPlanItem(ctx, d, target.ItemID, clientID); err != nil {
		return nil, fmt.Errorf("link %s to client: %w", d, err)
	}

	updated, err := e.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &AssignResult{
		Record: record,
		Client: updated,
		Status: Evaluate(updated, plan, d, now, e.loc),
	}, nil
}

// RequestSwap replaces an exercise or meal of the client's current workout or
// diet, spending one swap allowance unless the plan is unlimited.
func (e *Engine) RequestSwap(ctx context.Context, clientID primitive.ObjectID, in SwapInput) (*domain.SwapRequest, error) {
	if !in.Domain.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown plan domain %q", in.Domain))
	}
	if in.OldItemID == in.NewItemID {
		return nil, apperr.Validation("replacement must differ from the original item")
	}

	var swap *domain.SwapRequest
	err := e.withRetry(ctx, "swap", func(ctx context.Context) error {
		var err error
		swap, err = e.swapOnce(ctx, clientID, in)
		return err
	})

	e.metrics.Swap(string(in.Domain), outcome(err))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindPolicyRejected {
			e.log.Infow("swap rejected", "domain", in.Domain, "client_id", clientID.Hex(), "error", err)
		}
		return nil, err
	}

	e.log.Infow("swap recorded",
		"domain", in.Domain,
		"client_id", clientID.Hex(),
		"old_item_id", in.OldItemID.Hex(),
		"new_item_id", in.NewItemID.Hex())
	return swap, nil
}

func (e *Engine) swapOnce(ctx context.Context, clientID primitive.ObjectID, in SwapInput) (*domain.SwapRequest, error) {
	d := in.Domain
	entry := d.ItemResource()

	client, err := e.loadClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	plan, err := e.loadPlan(ctx, client)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	status := Evaluate(client, plan, d, now, e.loc)
	if err := CheckSwap(status); err != nil {
		return nil, err
	}

	old, err := e.store.PlanEntry(ctx, d, in.OldItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("%s not found", entry))
		}
		return nil, fmt.Errorf("load %s: %w", entry, err)
	}
	if status.CurrentItemID == nil || old.ParentID() != *status.CurrentItemID {
		return nil, apperr.PolicyRejected(apperr.ReasonItemNotInActivePlan,
			fmt.Sprintf("%s is not part of the client's current %s", entry, d))
	}
	if _, err := e.store.PlanEntry(ctx, d, in.NewItemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation(fmt.Sprintf("replacement %s not found", entry))
		}
		return nil, fmt.Errorf("load replacement %s: %w", entry, err)
	}

	err = e.store.Clients.ConsumeSwap(ctx, repository.SwapConsumption{
		ClientID:               clientID,
		Domain:                 d,
		ExpectedLastAssignedAt: *status.LastAssignedAt,
		Unlimited:              status.Unlimited,
	})
	if err != nil {
		return nil, fmt.Errorf("consume %s swap: %w", entry, err)
	}

	swap := &domain.SwapRequest{
		Domain:      d,
		ClientID:    clientID,
		OldItemID:   in.OldItemID,
		NewItemID:   in.NewItemID,
		Reason:      in.Reason,
		RequestedAt: now,
	}
	if _, err := e.store.Swaps(d).Create(ctx, swap); err != nil {
		return nil, fmt.Errorf("insert %s swap: %w", entry, err)
	}
	return swap, nil
}

// withRetry runs fn in a transaction and re-runs the whole read-check-write
// cycle when a conditional update lost a race.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := e.store.Tx.WithinTransaction(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		if attempt >= e.maxRetries {
			e.log.Warnw("giving up after concurrent updates", "operation", op, "attempts", attempt+1)
			return apperr.Conflict("the client was modified concurrently, retry the request")
		}
		e.metrics.ConflictRetry(op)
		e.log.Debugw("retrying after concurrent update", "operation", op, "attempt", attempt+1)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (e *Engine) loadClient(ctx context.Context, clientID primitive.ObjectID) (*domain.Client, error) {
	client, err := e.store.Clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("client not found")
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	return client, nil
}

// loadPlan returns nil for a client without a plan type or whose plan type
// was soft-deleted.
func (e *Engine) loadPlan(ctx context.Context, client *domain.Client) (*domain.PlanType, error) {
	if client.PlanTypeID == nil {
		return nil, nil
	}
	plan, err := e.store.PlanTypes.GetByID(ctx, *client.PlanTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load plan type: %w", err)
	}
	return plan, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
