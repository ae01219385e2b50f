// Package history writes the immutable assignment trail and mirrors it to
// object storage.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fittrack/backend/internal/apperr"
	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/metrics"
	"fittrack/backend/internal/repository"
	"fittrack/backend/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Assignment is everything needed to record one workout or diet assignment.
type Assignment struct {
	Domain     domain.PlanDomain
	ClientID   primitive.ObjectID
	ItemID     primitive.ObjectID
	AssignedAt time.Time
	AssignedBy primitive.ObjectID
	Notes      string
	// ExpectedLastAssignedAt guards the client stamp against concurrent
	// assignments.
	ExpectedLastAssignedAt *time.Time
	// SwapsRemaining resets the domain's swap counter; nil leaves it as is.
	SwapsRemaining *int
}

// Recorder is called by the entitlement engine only.
type Recorder struct {
	store   *repository.Store
	archive storage.ObjectStorage // nil disables archiving
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func NewRecorder(store *repository.Store, archive storage.ObjectStorage, m *metrics.Metrics, log *zap.SugaredLogger) *Recorder {
	return &Recorder{store: store, archive: archive, metrics: m, log: log}
}

// RecordAssignment stamps the client and inserts the AssignmentRecord. It
// must run inside the caller's transaction. A lost race on the client stamp
// is returned as repository.ErrConflict.
func (r *Recorder) RecordAssignment(ctx context.Context, a Assignment) (*domain.AssignmentRecord, error) {
	err := r.store.Clients.StampAssignment(ctx, repository.AssignmentStamp{
		ClientID:               a.ClientID,
		Domain:                 a.Domain,
		ItemID:                 a.ItemID,
		ExpectedLastAssignedAt: a.ExpectedLastAssignedAt,
		AssignedAt:             a.AssignedAt,
		SwapsRemaining:         a.SwapsRemaining,
	})
	if err != nil {
		return nil, fmt.Errorf("stamp client %s: %w", a.ClientID.Hex(), err)
	}

	record := &domain.AssignmentRecord{
		Domain:     a.Domain,
		ClientID:   a.ClientID,
		ItemID:     a.ItemID,
		StartDate:  a.AssignedAt,
		Notes:      a.Notes,
		AssignedBy: a.AssignedBy,
	}
	if _, err := r.store.History(a.Domain).Create(ctx, record); err != nil {
		return nil, fmt.Errorf("insert %s history: %w", a.Domain, err)
	}
	return record, nil
}

// Archive writes the record as JSON to object storage. Failures are logged
// and counted, never returned.
func (r *Recorder) Archive(ctx context.Context, record *domain.AssignmentRecord) {
	if r.archive == nil || record == nil {
		return
	}
	body, err := json.Marshal(record)
	if err == nil {
		err = r.archive.PutObject(ctx, ArchiveKey(record), body, "application/json")
	}
	if err != nil {
		r.metrics.ArchiveFailure()
		r.log.Warnw("failed to archive assignment record",
			"error", err,
			"record_id", record.ID.Hex(),
			"client_id", record.ClientID.Hex(),
			"domain", record.Domain)
	}
}

// ArchiveURL returns a presigned download URL for an archived record.
func (r *Recorder) ArchiveURL(ctx context.Context, record *domain.AssignmentRecord, expires time.Duration) (string, error) {
	if r.archive == nil {
		return "", apperr.NotFound("history archive is not configured")
	}
	url, err := r.archive.GeneratePresignedDownloadURL(ctx, ArchiveKey(record), expires)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", apperr.NotFound("assignment record has not been archived")
		}
		return "", err
	}
	return url, nil
}

// Unarchive removes the archived copy of a deleted record. Failures are
// logged, never returned.
func (r *Recorder) Unarchive(ctx context.Context, record *domain.AssignmentRecord) {
	if r.archive == nil || record == nil {
		return
	}
	if err := r.archive.DeleteObject(ctx, ArchiveKey(record)); err != nil {
		r.log.Warnw("failed to remove archived assignment record", "error", err, "record_id", record.ID.Hex())
	}
}

// ArchiveKey is the object key of a record: history/<domain>/<client>/<record>.json.
func ArchiveKey(record *domain.AssignmentRecord) string {
	return fmt.Sprintf("history/%s/%s/%s.json", record.Domain, record.ClientID.Hex(), record.ID.Hex())
}
