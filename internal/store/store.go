// Package store provides the prediction record stores: in-memory, SQLite,
// Postgres and Firestore.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Brownie44l1/cancer-api/internal/classify"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// ErrDuplicate is wrapped in the PersistenceError returned when a record id
// already exists. The stored record is left untouched.
var ErrDuplicate = errors.New("record already exists")

// ErrCorruptRecord is wrapped in the list PersistenceError when a stored row
// carries an unknown result or a suggestion that does not match its result.
var ErrCorruptRecord = errors.New("stored record is inconsistent")

type Driver string

const (
	DriverMemory    Driver = "memory"
	DriverSQLite    Driver = "sqlite"
	DriverPostgres  Driver = "postgres"
	DriverFirestore Driver = "firestore"
)

type Store interface {
	prediction.Repository
	Close() error
}

type Options struct {
	Driver              Driver
	SQLitePath          string
	PostgresDSN         string
	FirestoreProject    string
	FirestoreCollection string
}

// Open constructs the store selected by opts.Driver (memory when empty).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case DriverFirestore:
		return OpenFirestore(ctx, opts.FirestoreProject, opts.FirestoreCollection)
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}

func saveError(err error) error {
	return &prediction.PersistenceError{Op: "save", Err: err}
}

func listError(err error) error {
	return &prediction.PersistenceError{Op: "list", Err: err}
}

func duplicateError(id string) error {
	return saveError(fmt.Errorf("%w: %s", ErrDuplicate, id))
}

func checkClassification(r prediction.Record) error {
	if !r.Result.Valid() || r.Suggestion != classify.SuggestionFor(r.Result) {
		return fmt.Errorf("%w: %s has result %q with suggestion %q", ErrCorruptRecord, r.ID, r.Result, r.Suggestion)
	}
	return nil
}
