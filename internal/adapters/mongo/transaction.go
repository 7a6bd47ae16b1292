package mongo

import (
	"context"
	"errors"

	"github.com/rafaelleal24/inventory/internal/core/port"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
	"go.mongodb.org/mongo-driver/mongo"
)

type TransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) port.TransactionManager {
	return &TransactionManager{client: client}
}

// WithTransaction runs fn once inside a session transaction. Unlike
// session.WithTransaction it never replays fn; transient failures surface as
// conflicts so the caller decides whether to retry.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := tm.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	return mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := session.StartTransaction(); err != nil {
			return err
		}

		if err := fn(sessCtx); err != nil {
			_ = session.AbortTransaction(context.WithoutCancel(sessCtx))
			return mapTransactionError(err)
		}

		if err := session.CommitTransaction(sessCtx); err != nil {
			return mapTransactionError(err)
		}

		return nil
	})
}

func mapTransactionError(err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorLabel("TransientTransactionError") {
		return serviceerrors.NewConflictError("concurrent modification, retry the request")
	}
	return err
}
