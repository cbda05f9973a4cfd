package parse

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Feresey/schemagraph/parse/queries"
)

type mockQueries struct {
	mock.Mock
}

var _ Queries = (*mockQueries)(nil)

func (m *mockQueries) Tables(ctx context.Context, exec queries.Executor, p []queries.TablesPattern) ([]queries.Table, error) {
	args := m.Called(ctx, exec, p)
	tables, _ := args.Get(0).([]queries.Table)
	return tables, args.Error(1)
}

func (m *mockQueries) Columns(ctx context.Context, exec queries.Executor, oids []int) ([]queries.Column, error) {
	args := m.Called(ctx, exec, oids)
	columns, _ := args.Get(0).([]queries.Column)
	return columns, args.Error(1)
}

func (m *mockQueries) Constraints(ctx context.Context, exec queries.Executor, oids []int) ([]queries.Constraint, error) {
	args := m.Called(ctx, exec, oids)
	constraints, _ := args.Get(0).([]queries.Constraint)
	return constraints, args.Error(1)
}

func (m *mockQueries) Indexes(ctx context.Context, exec queries.Executor, oids []int) ([]queries.Index, error) {
	args := m.Called(ctx, exec, oids)
	indexes, _ := args.Get(0).([]queries.Index)
	return indexes, args.Error(1)
}
