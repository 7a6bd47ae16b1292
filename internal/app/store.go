package app

import (
	"context"
	"fmt"

	"github.com/rafaelleal24/inventory/internal/adapters/config"
	mongoadapter "github.com/rafaelleal24/inventory/internal/adapters/mongo"
	"github.com/rafaelleal24/inventory/internal/adapters/mongo/repository"
	"github.com/rafaelleal24/inventory/internal/adapters/sqlstore"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

// store bundles the repositories of one backend with the transaction manager
// that spans them.
type store struct {
	name      string
	users     port.UserPort
	products  port.ProductPort
	orders    port.OrderPort
	txManager port.TransactionManager
	ping      func(ctx context.Context) error
	close     func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, err := mongoadapter.NewConnection(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.Mongo.Database)
		return &store{
			name:      "mongodb",
			users:     repository.NewUserRepository(database),
			products:  repository.NewProductRepository(database),
			orders:    repository.NewOrderRepository(database),
			txManager: mongoadapter.NewTransactionManager(client),
			ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:     func() error { return mongoadapter.Disconnect(client) },
		}, nil
	case config.StorePostgres:
		db, err := sqlstore.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return newSQLStore("postgres", db), nil
	case config.StoreSQLite:
		db, err := sqlstore.OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		return newSQLStore("sqlite", db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newSQLStore(name string, db *sqlstore.DB) *store {
	return &store{
		name:      name,
		users:     sqlstore.NewUserRepository(db),
		products:  sqlstore.NewProductRepository(db),
		orders:    sqlstore.NewOrderRepository(db),
		txManager: sqlstore.NewTransactionManager(db),
		ping:      db.Ping,
		close:     db.Close,
	}
}
