package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	// sqlite driver, registers as "sqlite".
	_ "modernc.org/sqlite"
)

// EmployeeCount is the number of employees seeded by NewEmployeeDB.
const EmployeeCount = 4

const fixtureSchema = `
CREATE TABLE departments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE employees (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	department_id INTEGER,
	salary REAL,
	hire_date TEXT
);

INSERT INTO departments (name) VALUES ('Engineering'), ('Sales'), ('Marketing');

INSERT INTO employees (name, department_id, salary, hire_date) VALUES
	('Alice Johnson', 1, 95000.0, '2020-01-15'),
	('Bob Smith', 2, 65000.0, '2019-03-22'),
	('Carol White', 1, 105000.5, '2018-07-01'),
	('Dan Brown', 3, 58000.0, '2021-11-30');
`

// NewEmployeeDB writes a seeded employee database into t.TempDir() and
// returns its path. departments has ids 1 to 3; employees has
// EmployeeCount rows with ids 1 to EmployeeCount.
func NewEmployeeDB(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "employees.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err, "failed to seed employee database")
	return path
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, path, table string) int {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
