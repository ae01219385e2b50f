// Package memory is an in-process repository backend for development and
// tests. Transactions are serialized and rolled back by snapshot.
package memory

import (
	"context"
	"sync"
	"time"

	"fittrack/backend/internal/repository"
)

type txKey struct{}

// snapshotter is implemented by every table so a transaction can restore
// the state it started from.
type snapshotter interface {
	snapshot() any
	restore(state any)
}

// db is the shared state behind one Store. mu guards the maps; txMu
// serializes writers, so a transaction never interleaves with another write.
// Reads outside a transaction may observe uncommitted writes.
type db struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	tables []snapshotter
	now    func() time.Time
}

func (d *db) register(t snapshotter) {
	d.tables = append(d.tables, t)
}

func (d *db) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*db)
	return owner == d
}

func (d *db) read(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn()
}

// write runs fn as its own implicit transaction unless ctx already carries one.
func (d *db) write(ctx context.Context, fn func() error) error {
	if !d.inTx(ctx) {
		d.txMu.Lock()
		defer d.txMu.Unlock()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}

func (d *db) timestamp() time.Time {
	return d.now().UTC()
}

// WithinTransaction implements repository.Transactor. Nested calls join the
// outer transaction.
func (d *db) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if d.inTx(ctx) {
		return fn(ctx)
	}

	d.txMu.Lock()
	defer d.txMu.Unlock()

	d.mu.RLock()
	saved := make([]any, len(d.tables))
	for i, t := range d.tables {
		saved[i] = t.snapshot()
	}
	d.mu.RUnlock()

	rollback := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, t := range d.tables {
			t.restore(saved[i])
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, d)); err != nil {
		rollback()
		return err
	}
	return nil
}

var _ repository.Transactor = (*db)(nil)
