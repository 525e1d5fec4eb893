// Package sqlgate validates caller supplied SQL and executes it against the
// store.
//
// Every statement passes two independent filters before it reaches the
// database: an allow-list on the leading statement kind, selected by Policy,
// and a deny-list of structural keywords. Text holding more than one
// statement is refused as well. SELECT statements are capped with
// a textual LIMIT rewrite. Each call runs in its own transaction on its own
// connection and reports the outcome as a Result; store failures never
// escape as Go errors.
package sqlgate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ConnSource hands out dedicated database connections.
type ConnSource interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Gate is the validating query executor.
type Gate struct {
	conns  ConnSource
	policy Policy
	logger *slog.Logger
}

// New creates a gate over conns enforcing policy.
func New(conns ConnSource, policy Policy, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		conns:  conns,
		policy: policy,
		logger: logger,
	}
}

// Policy returns the policy the gate enforces.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Execute validates and runs query. SELECTs without a LIMIT are capped at
// rowLimit rows when rowLimit > 0.
func (g *Gate) Execute(ctx context.Context, query string, rowLimit int) Result {
	return g.ExecuteArgs(ctx, query, rowLimit)
}

// ExecuteArgs is Execute with bound parameters for the statement's
// placeholders. The policy checks only see the statement text.
func (g *Gate) ExecuteArgs(ctx context.Context, query string, rowLimit int, args ...any) Result {
	if err := g.policy.Validate(query); err != nil {
		g.logger.Warn("query rejected", "policy", g.policy.String(), "reason", err.Error())
		return ErrorResult(err.Error())
	}
	if !SingleStatement(query) {
		g.logger.Warn("query rejected", "policy", g.policy.String(), "reason", MultiStatementMessage)
		return ErrorResult("SQL error: " + MultiStatementMessage)
	}

	isSelect := IsSelect(query)
	final := ApplyLimit(query, rowLimit)
	g.logger.Debug("executing query", "query", final, "args", len(args))

	res, err := g.run(ctx, final, isSelect, args)
	if err != nil {
		g.logger.Debug("query failed", "query", final, "error", err)
		return ErrorResult(fmt.Sprintf("SQL error: %s", err.Error()))
	}
	return res
}

func (g *Gate) run(ctx context.Context, query string, isSelect bool, args []any) (Result, error) {
	conn, err := g.conns.Conn(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if isSelect {
		res, err = queryRows(ctx, tx, query, args)
	} else {
		res, err = execStatement(ctx, tx, query, args)
	}
	if err != nil {
		_ = tx.Rollback()
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return res, nil
}

func queryRows(ctx context.Context, tx *sql.Tx, query string, args []any) (Result, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	data, err := collectRows(rows)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindRows, Data: data, Query: query}, nil
}

func execStatement(ctx context.Context, tx *sql.Tx, query string, args []any) (Result, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindExec, AffectedRows: affected, Query: query}, nil
}

func collectRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = FromDriver(values[i])
		}
		data = append(data, row)
	}
	return data, rows.Err()
}
