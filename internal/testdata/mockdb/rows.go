package mockdb

import (
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Rows is a canned pgx.Rows: each entry is one result row's column values,
// assigned positionally to Scan destinations.
type Rows struct {
	Data    [][]any
	ScanErr error

	idx    int
	closed bool
}

var _ pgx.Rows = &Rows{}

func NewRows(data [][]any) *Rows {
	return &Rows{Data: data, idx: -1}
}

func (r *Rows) Next() bool {
	r.idx++
	return r.idx < len(r.Data)
}

func (r *Rows) Scan(dest ...any) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	row := r.Data[r.idx]
	for i, d := range dest {
		if i >= len(row) || row[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *Rows) Close()     { r.closed = true }
func (r *Rows) Err() error { return nil }

func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) Values() ([]any, error)                       { return r.Data[r.idx], nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }
