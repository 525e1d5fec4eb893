package sqlgate

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BearHuddleston/employee-mcp-server/internal/testutil"
	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
)

func newTestGate(t *testing.T, policy Policy) (*Gate, string) {
	t.Helper()
	path := testutil.NewEmployeeDB(t)
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, policy, testutil.NewTestLogger(t)), path
}

func TestGate_Select(t *testing.T) {
	gate, _ := newTestGate(t, Permissive)
	ctx := context.Background()

	t.Run("applies row limit", func(t *testing.T) {
		res := gate.Execute(ctx, "SELECT * FROM employees", 2)
		require.True(t, res.OK(), res.Error)
		assert.Equal(t, KindRows, res.Kind)
		assert.Len(t, res.Data, 2)
		assert.Equal(t, "SELECT * FROM employees LIMIT 2", res.Query)
	})

	t.Run("keeps explicit limit", func(t *testing.T) {
		res := gate.Execute(ctx, "SELECT id FROM employees LIMIT 3", 1)
		require.True(t, res.OK(), res.Error)
		assert.Len(t, res.Data, 3)
	})

	t.Run("decodes column types", func(t *testing.T) {
		res := gate.Execute(ctx, "SELECT id, name, salary, hire_date, NULL AS missing FROM employees WHERE id = 1", 100)
		require.True(t, res.OK(), res.Error)
		require.Len(t, res.Data, 1)
		assert.Equal(t, Row{
			"id":        Int(1),
			"name":      Text("Alice Johnson"),
			"salary":    Float(95000),
			"hire_date": Text("2020-01-15"),
			"missing":   Null{},
		}, res.Data[0])
	})

	t.Run("empty result", func(t *testing.T) {
		res := gate.Execute(ctx, "SELECT * FROM employees WHERE id = -1", 100)
		require.True(t, res.OK(), res.Error)

		out, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(out), `"data":[]`)
		assert.Contains(t, string(out), `"row_count":0`)
	})

	t.Run("sql error", func(t *testing.T) {
		res := gate.Execute(ctx, "SELECT * FROM no_such_table", 100)
		assert.False(t, res.OK())
		assert.Contains(t, res.Error, "SQL error: ")
		assert.Contains(t, res.Error, "no_such_table")
	})
}

func TestGate_Mutations(t *testing.T) {
	gate, path := newTestGate(t, Permissive)
	ctx := context.Background()

	res := gate.Execute(ctx, "UPDATE employees SET salary = salary + 1 WHERE department_id = 1", 100)
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, KindExec, res.Kind)
	assert.Equal(t, int64(2), res.AffectedRows)
	assert.Equal(t, "UPDATE employees SET salary = salary + 1 WHERE department_id = 1", res.Query)

	res = gate.ExecuteArgs(ctx, "INSERT INTO departments (name) VALUES (?)", 0, "Operations")
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, int64(1), res.AffectedRows)
	assert.Equal(t, 4, testutil.CountRows(t, path, "departments"))

	// UNIQUE(name) violation is reported, not raised.
	res = gate.ExecuteArgs(ctx, "INSERT INTO departments (name) VALUES (?)", 0, "Operations")
	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "SQL error: ")
	assert.Equal(t, 4, testutil.CountRows(t, path, "departments"))
}

func TestGate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		query  string
		want   string
	}{
		{name: "drop", policy: Permissive, query: "DROP TABLE employees", want: "Only SELECT, INSERT, UPDATE, DELETE queries are allowed"},
		{name: "chained drop", policy: Permissive, query: "SELECT 1; DROP TABLE employees", want: DangerMessage},
		{name: "readonly delete", policy: ReadOnly, query: "DELETE FROM employees", want: "Only SELECT queries are allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, path := newTestGate(t, tt.policy)

			res := gate.Execute(context.Background(), tt.query, 100)
			assert.Equal(t, ErrorResult(tt.want), res)
			assert.Equal(t, testutil.EmployeeCount, testutil.CountRows(t, path, "employees"))
		})
	}
}

func TestGate_MultipleStatements(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		query  string
	}{
		{name: "readonly select then delete", policy: ReadOnly, query: "SELECT 1 LIMIT 1; DELETE FROM employees"},
		{name: "permissive select then delete", policy: Permissive, query: "SELECT 1 LIMIT 1; DELETE FROM employees"},
		{name: "permissive delete then update", policy: Permissive, query: "DELETE FROM employees WHERE id = 1; UPDATE employees SET salary = 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, path := newTestGate(t, tt.policy)

			res := gate.Execute(context.Background(), tt.query, 100)
			assert.Equal(t, ErrorResult("SQL error: "+MultiStatementMessage), res)
			assert.Equal(t, testutil.EmployeeCount, testutil.CountRows(t, path, "employees"))
		})
	}

	gate, _ := newTestGate(t, ReadOnly)
	res := gate.Execute(context.Background(), "SELECT name FROM departments WHERE name <> 'a;b';", 100)
	require.True(t, res.OK(), res.Error)
	assert.Len(t, res.Data, 3)
}

func TestGate_StoreFailures(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   string
	}{
		{
			name:  "begin fails",
			query: "SELECT 1",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
			},
			wantErr: "SQL error: database is locked",
		},
		{
			name:  "query fails and rolls back",
			query: "SELECT * FROM employees",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM employees LIMIT 5")).
					WillReturnError(errors.New("disk I/O error"))
				mock.ExpectRollback()
			},
			wantErr: "SQL error: disk I/O error",
		},
		{
			name:  "exec fails and rolls back",
			query: "DELETE FROM employees",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees")).
					WillReturnError(errors.New("constraint failed"))
				mock.ExpectRollback()
			},
			wantErr: "SQL error: constraint failed",
		},
		{
			name:  "commit fails",
			query: "DELETE FROM employees",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees")).
					WillReturnResult(sqlmock.NewResult(0, 4))
				mock.ExpectCommit().WillReturnError(errors.New("disk full"))
			},
			wantErr: "SQL error: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setupMock(mock)

			gate := New(db, Permissive, testutil.NewTestLogger(t))
			res := gate.Execute(context.Background(), tt.query, 5)

			assert.Equal(t, ErrorResult(tt.wantErr), res)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGate_MockedSelect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM departments LIMIT 100")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Engineering").
			AddRow(int64(2), nil))
	mock.ExpectCommit()

	gate := New(db, ReadOnly, testutil.NewTestLogger(t))
	res := gate.Execute(context.Background(), "SELECT id, name FROM departments", 100)

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, []Row{
		{"id": Int(1), "name": Text("Engineering")},
		{"id": Int(2), "name": Null{}},
	}, res.Data)
	assert.NoError(t, mock.ExpectationsWereMet())
}
