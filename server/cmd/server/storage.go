package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/config"
	"github.com/siriusexpedition/sirius/server/internal/store"
	"github.com/siriusexpedition/sirius/server/internal/store/mongo"
	"github.com/siriusexpedition/sirius/server/internal/store/sqlite"
	"github.com/siriusexpedition/sirius/server/internal/visitor"
)

// storage is the opened persistence for one backend choice.
type storage struct {
	docs     visitor.DocumentStore
	accounts auth.AccountStore
	closers  []io.Closer
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			slog.Warn("storage close failed", "err", err)
		}
	}
}

// openStorage opens the configured backend. Admin accounts live in SQLite
// for both the sqlite and mongo backends, and in process memory otherwise.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		slog.Warn("memory storage: visitor counts and admin accounts are lost on restart")
		return &storage{docs: store.NewMemory(), accounts: auth.NewMemoryAccounts()}, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{docs: db, accounts: db, closers: []io.Closer{db}}, nil

	case config.BackendMongo:
		uri := cfg.Mongo.URI()
		if uri == "" {
			return nil, fmt.Errorf("mongo backend: environment variable %s is empty", cfg.Mongo.URIEnv)
		}
		docs, err := mongo.Open(ctx, mongo.Config{
			URI:        uri,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Mongo.Timeout,
		})
		if err != nil {
			return nil, err
		}
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			_ = docs.Close()
			return nil, err
		}
		return &storage{docs: docs, accounts: db, closers: []io.Closer{docs, db}}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// bootstrapAdmin creates the first admin from the environment when the email
// is not registered yet. Either variable empty disables it.
func bootstrapAdmin(ctx context.Context, svc *auth.Service, accounts auth.AccountStore, email, pw string) error {
	if email == "" || pw == "" {
		return nil
	}
	_, err := accounts.AdminByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, auth.ErrAdminNotFound) {
		return err
	}
	_, err = svc.CreateAdmin(ctx, email, pw)
	return err
}
