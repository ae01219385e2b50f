package memory

import (
	"context"
	"sort"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type entityPtr[T any] interface {
	*T
	domain.Entity
}

// table implements repository.Repository[T] over a map. All predicates and
// hooks run with db.mu held.
type table[T any, PT entityPtr[T]] struct {
	db   *db
	rows map[primitive.ObjectID]T
	// inScope reports whether a live row belongs to the scope.
	inScope func(scope repository.Scope, row PT) bool
	// apply copies the updatable fields of src onto dst.
	apply func(dst, src PT)
	// conflicts reports whether two live rows violate a unique key.
	conflicts func(a, b PT) bool
}

func newTable[T any, PT entityPtr[T]](d *db, inScope func(repository.Scope, PT) bool, apply func(dst, src PT)) *table[T, PT] {
	t := &table[T, PT]{db: d, rows: map[primitive.ObjectID]T{}, inScope: inScope, apply: apply}
	d.register(t)
	return t
}

func (t *table[T, PT]) snapshot() any {
	copied := make(map[primitive.ObjectID]T, len(t.rows))
	for k, v := range t.rows {
		copied[k] = v
	}
	return copied
}

func (t *table[T, PT]) restore(state any) {
	t.rows = state.(map[primitive.ObjectID]T)
}

// live returns a copy of a non-deleted row. Callers hold db.mu.
func (t *table[T, PT]) live(id primitive.ObjectID) (T, bool) {
	row, ok := t.rows[id]
	if !ok || PT(&row).IsDeleted() {
		var zero T
		return zero, false
	}
	return row, true
}

func (t *table[T, PT]) Create(ctx context.Context, item *T) (primitive.ObjectID, error) {
	err := t.db.write(ctx, func() error {
		candidate := PT(item)
		if t.conflicts != nil {
			for _, row := range t.rows {
				existing := PT(&row)
				if !existing.IsDeleted() && t.conflicts(existing, candidate) {
					return repository.ErrDuplicate
				}
			}
		}
		candidate.SetID(primitive.NewObjectID())
		candidate.MarkCreated(t.db.timestamp())
		t.rows[candidate.GetID()] = *item
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return PT(item).GetID(), nil
}

func (t *table[T, PT]) GetByID(_ context.Context, id primitive.ObjectID) (*T, error) {
	var (
		row T
		ok  bool
	)
	t.db.read(func() { row, ok = t.live(id) })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (t *table[T, PT]) GetByIDIncludingDeleted(_ context.Context, id primitive.ObjectID) (*T, error) {
	var (
		row T
		ok  bool
	)
	t.db.read(func() { row, ok = t.rows[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (t *table[T, PT]) List(_ context.Context, scope repository.Scope) ([]T, error) {
	items := []T{}
	t.db.read(func() {
		for _, row := range t.rows {
			r := row
			p := PT(&r)
			if p.IsDeleted() || !t.inScope(scope, p) {
				continue
			}
			items = append(items, r)
		}
	})
	sortByCreation[T, PT](items)
	return items, nil
}

func (t *table[T, PT]) Update(ctx context.Context, item *T) error {
	return t.db.write(ctx, func() error {
		incoming := PT(item)
		stored, ok := t.live(incoming.GetID())
		if !ok {
			return repository.ErrNotFound
		}
		if t.conflicts != nil {
			for id, row := range t.rows {
				existing := PT(&row)
				if id != incoming.GetID() && !existing.IsDeleted() && t.conflicts(existing, incoming) {
					return repository.ErrDuplicate
				}
			}
		}
		now := t.db.timestamp()
		incoming.Touch(now)
		dst := PT(&stored)
		t.apply(dst, incoming)
		dst.Touch(now)
		t.rows[dst.GetID()] = stored
		return nil
	})
}

func (t *table[T, PT]) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return t.db.write(ctx, func() error {
		return t.mutate(id, func(row PT) error {
			row.MarkDeleted(t.db.timestamp())
			return nil
		})
	})
}

// mutate applies fn to a live row and stores the result. Callers hold db.mu.
func (t *table[T, PT]) mutate(id primitive.ObjectID, fn func(row PT) error) error {
	row, ok := t.live(id)
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(PT(&row)); err != nil {
		return err
	}
	t.rows[id] = row
	return nil
}

// findLive returns the first live row matching pred. Callers hold db.mu.
func (t *table[T, PT]) findLive(pred func(PT) bool) (T, bool) {
	for _, row := range t.rows {
		r := row
		if p := PT(&r); !p.IsDeleted() && pred(p) {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func sortByCreation[T any, PT entityPtr[T]](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := PT(&items[i]), PT(&items[j])
		if ca, cb := a.GetCreatedAt(), b.GetCreatedAt(); !ca.Equal(cb) {
			return ca.Before(cb)
		}
		return a.GetID().Hex() < b.GetID().Hex()
	})
}
