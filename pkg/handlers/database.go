// Package handlers provides domain-specific MCP handler implementations.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BearHuddleston/employee-mcp-server/pkg/mcp"
	"github.com/BearHuddleston/employee-mcp-server/pkg/sqlgate"
	"github.com/BearHuddleston/employee-mcp-server/pkg/store"
)

// Tool names
const (
	ToolQueryDatabase  = "query_database"
	ToolGetSchema      = "get_schema"
	ToolListTables     = "list_tables"
	ToolInsertEmployee = "insert_employee"
)

// DefaultRowLimit caps SELECTs when the caller passes no limit.
const DefaultRowLimit = 100

const insertEmployeeSQL = "INSERT INTO employees (name, department_id, salary, hire_date) VALUES (?, ?, ?, ?)"

const missingEmployeeFields = "All fields (name, department_id, salary, hire_date) are required"

// Introspector reports the live structure of the database.
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	Schema(ctx context.Context) (map[string][]store.Column, error)
}

// Database implements the MCP tool handler for the employee database.
type Database struct {
	gate         *sqlgate.Gate
	schema       Introspector
	defaultLimit int
	tools        []mcp.Tool
	logger       *slog.Logger
}

// NewDatabase creates a database tool handler. The tool catalogue is built
// here once and never changes afterwards; insert_employee is only offered
// when the gate's policy admits INSERT.
func NewDatabase(gate *sqlgate.Gate, schema Introspector, defaultLimit int, logger *slog.Logger) *Database {
	if defaultLimit == 0 {
		defaultLimit = DefaultRowLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{
		gate:         gate,
		schema:       schema,
		defaultLimit: defaultLimit,
		tools:        catalogue(gate.Policy(), defaultLimit),
		logger:       logger,
	}
}

func catalogue(policy sqlgate.Policy, defaultLimit int) []mcp.Tool {
	kinds := "SELECT"
	if policy.Allows("INSERT") {
		kinds = "SELECT, INSERT, UPDATE, DELETE"
	}

	tools := []mcp.Tool{
		{
			Name:        ToolQueryDatabase,
			Description: fmt.Sprintf("Execute SQL queries (%s) on the SQLite database", kinds),
			InputSchema: mcp.InputSchema{
				Type: "object",
				Properties: map[string]mcp.Property{
					"query": {Type: "string", Description: fmt.Sprintf("SQL query to execute (%s)", kinds)},
					"limit": {Type: "integer", Description: "Maximum number of rows to return for SELECT queries", Default: defaultLimit},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolGetSchema,
			Description: "Get the database schema information",
			InputSchema: mcp.InputSchema{Type: "object", Properties: map[string]mcp.Property{}},
		},
		{
			Name:        ToolListTables,
			Description: "List all tables in the database",
			InputSchema: mcp.InputSchema{Type: "object", Properties: map[string]mcp.Property{}},
		},
	}

	if policy.Allows("INSERT") {
		tools = append(tools, mcp.Tool{
			Name:        ToolInsertEmployee,
			Description: "Insert a new employee record into the employees table",
			InputSchema: mcp.InputSchema{
				Type: "object",
				Properties: map[string]mcp.Property{
					"name":          {Type: "string", Description: "Employee name"},
					"department_id": {Type: "integer", Description: "Department ID"},
					"salary":        {Type: "number", Description: "Employee salary"},
					"hire_date":     {Type: "string", Description: "Hire date (YYYY-MM-DD format)"},
				},
				Required: []string{"name", "department_id", "salary", "hire_date"},
			},
		})
	}
	return tools
}

// Tool Handler Implementation

func (d *Database) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return d.tools, nil
}

func (d *Database) CallTool(ctx context.Context, params mcp.ToolCallParams) (mcp.ToolResponse, error) {
	if !d.offers(params.Name) {
		return mcp.ToolResponse{}, fmt.Errorf("%w: %s", mcp.ErrUnknownTool, params.Name)
	}

	var (
		result any
		err    error
	)
	switch params.Name {
	case ToolQueryDatabase:
		result, err = d.queryDatabase(ctx, params.Arguments)
	case ToolGetSchema:
		result = d.getSchema(ctx)
	case ToolListTables:
		result = d.listTables(ctx)
	case ToolInsertEmployee:
		result, err = d.insertEmployee(ctx, params.Arguments)
	}
	if err != nil {
		return mcp.ToolResponse{}, err
	}
	return mcp.TextResponse(result)
}

func (d *Database) offers(name string) bool {
	for _, tool := range d.tools {
		if tool.Name == name {
			return true
		}
	}
	return false
}

func (d *Database) queryDatabase(ctx context.Context, args map[string]any) (sqlgate.Result, error) {
	query, ok, err := stringArg(args, "query")
	if err != nil {
		return sqlgate.Result{}, err
	}
	if !ok {
		return sqlgate.Result{}, fmt.Errorf("missing required argument: query")
	}

	limit, err := intArg(args, "limit", d.defaultLimit)
	if err != nil {
		return sqlgate.Result{}, err
	}

	return d.gate.Execute(ctx, query, limit), nil
}

func (d *Database) getSchema(ctx context.Context) any {
	schema, err := d.schema.Schema(ctx)
	if err != nil {
		d.logger.Error("schema introspection failed", "error", err)
		return databaseError(err)
	}
	return schema
}

func (d *Database) listTables(ctx context.Context) any {
	tables, err := d.schema.ListTables(ctx)
	if err != nil {
		d.logger.Error("listing tables failed", "error", err)
		return databaseError(err)
	}
	return map[string]any{
		"success": true,
		"tables":  tables,
	}
}

func (d *Database) insertEmployee(ctx context.Context, args map[string]any) (any, error) {
	name, _, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	hireDate, _, err := stringArg(args, "hire_date")
	if err != nil {
		return nil, err
	}
	if name == "" || hireDate == "" || isNull(args, "department_id") || isNull(args, "salary") {
		return map[string]string{"error": missingEmployeeFields}, nil
	}

	departmentID, err := intArg(args, "department_id", 0)
	if err != nil {
		return nil, err
	}
	salary, err := floatArg(args, "salary")
	if err != nil {
		return nil, err
	}

	return d.gate.ExecuteArgs(ctx, insertEmployeeSQL, 0, name, departmentID, salary, hireDate), nil
}

func databaseError(err error) map[string]string {
	return map[string]string{"error": fmt.Sprintf("Database error: %s", err.Error())}
}
