package mongo

import (
	"alcyxob/exercise-tracker/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTransactor runs units of work inside a multi-document transaction. It needs a
// replica set or sharded cluster.
type mongoTransactor struct {
	client *mongo.Client
}

// NewMongoTransactor returns a Transactor backed by MongoDB sessions.
func NewMongoTransactor(client *mongo.Client) repository.Transactor {
	return &mongoTransactor{client: client}
}

// WithinTransaction runs fn with a session context. Every repository call made with
// that context joins the transaction. Transient errors are retried by the driver, so
// fn may run more than once.
func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
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

// passthroughTransactor runs fn directly. It serves standalone servers, where
// transactions are unavailable.
type passthroughTransactor struct{}

// NewPassthroughTransactor returns a Transactor that provides no atomicity.
func NewPassthroughTransactor() repository.Transactor {
	return passthroughTransactor{}
}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
