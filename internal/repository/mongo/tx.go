package mongo

import (
	"context"

	"fittrack/backend/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// sessionTransactor implements repository.Transactor with a causally
// consistent session transaction. The driver retries the callback on
// TransientTransactionError labels; business errors abort and are returned
// unchanged.
type sessionTransactor struct {
	client *mongo.Client
}

// NewTransactor creates a Transactor bound to the given client.
func NewTransactor(client *mongo.Client) repository.Transactor {
	return &sessionTransactor{client: client}
}

func (t *sessionTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a session transaction: join it.
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
