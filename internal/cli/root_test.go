package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BearHuddleston/employee-mcp-server/internal/testutil"
	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_NoDatabase(t *testing.T) {
	_, _, err := execute(t, "")
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestRoot_MissingDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, _, err := execute(t, "", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDatabaseNotFound)
	assert.NoFileExists(t, path)
}

func TestRoot_InvalidPolicy(t *testing.T) {
	path := testutil.NewEmployeeDB(t)

	_, _, err := execute(t, "", "--policy", "anything-goes", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid policy")
}

func TestRoot_ServeStdio(t *testing.T) {
	path := testutil.NewEmployeeDB(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	stdout, stderr, err := execute(t, input, "--policy", "readonly", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)

	var list struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &list))
	require.Len(t, list.Result.Tools, 3)
	for _, tool := range list.Result.Tools {
		assert.NotEqual(t, "insert_employee", tool.Name)
	}

	// logs never go to stdout
	assert.Contains(t, stderr, "serving database")
}

func TestEmployeesCommands(t *testing.T) {
	path := testutil.NewEmployeeDB(t)

	t.Run("list table", func(t *testing.T) {
		stdout, _, err := execute(t, "", "employees", "list", "--database", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Alice Johnson")
		assert.Contains(t, stdout, "Engineering")
		assert.Contains(t, stdout, "95000.00")
	})

	t.Run("list json", func(t *testing.T) {
		stdout, _, err := execute(t, "", "employees", "list", "--database", path, "-o", "json")
		require.NoError(t, err)

		var employees []store.Employee
		require.NoError(t, json.Unmarshal([]byte(stdout), &employees))
		assert.Len(t, employees, testutil.EmployeeCount)
	})

	t.Run("create", func(t *testing.T) {
		stdout, _, err := execute(t, "", "employees", "create", "--database", path,
			"--name", "Grace Hopper", "--department-id", "1", "--salary", "120000", "--hire-date", "2024-07-01")
		require.NoError(t, err)
		assert.Contains(t, stdout, "created with id 5")
		assert.Equal(t, testutil.EmployeeCount+1, testutil.CountRows(t, path, "employees"))
	})

	t.Run("create unknown department", func(t *testing.T) {
		_, _, err := execute(t, "", "employees", "create", "--database", path,
			"--name", "Nobody", "--department-id", "99", "--salary", "1", "--hire-date", "2024-07-01")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		_, _, err := execute(t, "", "employees", "update", "5", "--database", path,
			"--name", "Grace Hopper", "--department-id", "2", "--salary", "125000", "--hire-date", "2024-07-01")
		require.NoError(t, err)

		stdout, _, err := execute(t, "", "employees", "get", "5", "--database", path, "--output", "json")
		require.NoError(t, err)
		var e store.Employee
		require.NoError(t, json.Unmarshal([]byte(stdout), &e))
		require.NotNil(t, e.DepartmentID)
		assert.Equal(t, int64(2), *e.DepartmentID)
		require.NotNil(t, e.Salary)
		assert.Equal(t, 125000.0, *e.Salary)
	})

	t.Run("delete", func(t *testing.T) {
		_, _, err := execute(t, "", "employees", "delete", "5", "--database", path)
		require.NoError(t, err)
		assert.Equal(t, testutil.EmployeeCount, testutil.CountRows(t, path, "employees"))
	})

	t.Run("bad id", func(t *testing.T) {
		_, _, err := execute(t, "", "employees", "get", "abc", "--database", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid id")
	})

	t.Run("departments", func(t *testing.T) {
		stdout, _, err := execute(t, "", "departments", "list", "--database", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Marketing")
	})
}

func TestEmployeesList_NullColumns(t *testing.T) {
	path := testutil.NewEmployeeDB(t)

	st, err := store.Open(path)
	require.NoError(t, err)
	conn, err := st.Conn(context.Background())
	require.NoError(t, err)
	_, err = conn.ExecContext(context.Background(),
		"INSERT INTO employees (name, department_id, salary, hire_date) VALUES ('Pending', NULL, NULL, '2024-09-01')")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "", "employees", "list", "--database", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pending")
	assert.Contains(t, stdout, "Alice Johnson")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mcpserver "+Version)
}
