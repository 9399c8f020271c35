// Package mockdb provides testify mocks for the narrow pgx surface the
// repository consumes, plus a canned Rows implementation for query results.
package mockdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// DB mocks the repository's database interface. The compliance check lives
// in the repository's own tests to keep this package import-cycle free.
type DB struct {
	mock.Mock
}

func (m *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	callArgs := []any{ctx, sql}
	callArgs = append(callArgs, args...)
	result := m.Called(callArgs...)
	return result.Get(0).(pgconn.CommandTag), result.Error(1)
}

func (m *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	callArgs := []any{ctx, sql}
	callArgs = append(callArgs, args...)
	result := m.Called(callArgs...)
	if v := result.Get(0); v != nil {
		return v.(pgx.Rows), result.Error(1)
	}
	return nil, result.Error(1)
}

func (m *DB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	result := m.Called(ctx, b)
	return result.Get(0).(pgx.BatchResults)
}

func (m *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	result := m.Called(ctx)
	if v := result.Get(0); v != nil {
		return v.(pgx.Tx), result.Error(1)
	}
	return nil, result.Error(1)
}

// BatchResults mocks pgx.BatchResults.
type BatchResults struct {
	mock.Mock
}

var _ pgx.BatchResults = &BatchResults{}

func (m *BatchResults) Exec() (pgconn.CommandTag, error) {
	args := m.Called()
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *BatchResults) Query() (pgx.Rows, error) {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BatchResults) QueryRow() pgx.Row {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.(pgx.Row)
	}
	return nil
}

func (m *BatchResults) Close() error {
	args := m.Called()
	return args.Error(0)
}
