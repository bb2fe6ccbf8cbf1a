package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// PgStore is the Postgres Store over db.Pool.
type PgStore struct{}

var _ Store = PgStore{}

func NewPgStore() PgStore { return PgStore{} }

// notFound maps pgx.ErrNoRows to target and wraps any other failure as a storage error.
func notFound(op string, err error, target error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return storageErr(op, err)
}

// wrapStorage leaves flow errors alone and wraps everything else as ErrPersistence.
func wrapStorage(op string, err error) error {
	if err == nil || isFlowError(err) || errors.Is(err, ErrPersistence) {
		return err
	}
	return storageErr(op, err)
}
