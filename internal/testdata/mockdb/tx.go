package mockdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// Tx mocks pgx.Tx for the transactional SaveRun path.
type Tx struct {
	mock.Mock
}

var _ pgx.Tx = &Tx{}

func (m *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(pgx.Tx), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Tx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Tx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	args := m.Called(ctx, tableName, columnNames, rowSrc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	args := m.Called(ctx, b)
	return args.Get(0).(pgx.BatchResults)
}

func (m *Tx) LargeObjects() pgx.LargeObjects {
	m.Called()
	return pgx.LargeObjects{}
}

func (m *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	args := m.Called(ctx, name, sql)
	if v := args.Get(0); v != nil {
		return v.(*pgconn.StatementDescription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	callArgs := []any{ctx, sql}
	callArgs = append(callArgs, arguments...)
	args := m.Called(callArgs...)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	callArgs := []any{ctx, sql}
	callArgs = append(callArgs, args...)
	result := m.Called(callArgs...)
	if v := result.Get(0); v != nil {
		return v.(pgx.Rows), result.Error(1)
	}
	return nil, result.Error(1)
}

func (m *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	callArgs := []any{ctx, sql}
	callArgs = append(callArgs, args...)
	result := m.Called(callArgs...)
	if v := result.Get(0); v != nil {
		return v.(pgx.Row)
	}
	return nil
}

func (m *Tx) Conn() *pgx.Conn {
	m.Called()
	return nil
}
